package cost

import (
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/pricing"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// multiAZSavingsRatio is the share of a Multi-AZ price paid for the standby.
const multiAZSavingsRatio = 0.50

// nonProdEnvironments are Environment tag values treated as non-production.
var nonProdEnvironments = map[string]struct{}{
	"dev":         {},
	"development": {},
	"test":        {},
	"testing":     {},
	"qa":          {},
	"stage":       {},
	"staging":     {},
	"sandbox":     {},
}

// previousGenerationRDS lists DB instance families with a cheaper successor.
var previousGenerationRDS = map[string]struct{}{
	"t2": {},
	"m3": {},
	"m4": {},
	"r3": {},
	"r4": {},
}

func nonProd(cfg map[string]any) bool {
	env := strings.ToLower(plan.TagValue(cfg, "environment", "env", "stage"))
	_, ok := nonProdEnvironments[env]
	return ok
}

func rdsMultiAZNonProdRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_RDS_MULTI_AZ_NON_PROD",
		Title:          "Multi-AZ RDS in a non-production environment",
		Description:    "A standby replica doubles the instance price; non-production databases seldom need the availability it buys.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_db_instance"},
		Category:       models.CostCategoryDatabase,
		Recommendation: "Set multi_az = false outside production.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.IsTrue(rc.Change.After, "multi_az") && nonProd(rc.Change.After)
		},
		Savings: func(rc *models.ResourceChange) float64 {
			return pricing.Price(rc.Type, rc.Change.After).Monthly * multiAZSavingsRatio
		},
		Evidence: environmentEvidence,
	}
}

func rdsPreviousGenerationRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_RDS_PREVIOUS_GENERATION",
		Title:          "Previous-generation RDS instance class",
		Description:    "The DB instance class belongs to a previous generation that costs more than its current successor.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_db_instance", "aws_rds_cluster_instance"},
		Category:       models.CostCategoryDatabase,
		Recommendation: "Move to a current-generation class such as db.t3, db.m5 or db.r5 (or Graviton db.m6g/db.r6g).",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			class := plan.String(rc.Change.After, "instance_class")
			if !strings.HasPrefix(class, "db.") {
				return false
			}
			_, old := previousGenerationRDS[pricing.InstanceFamily(class)]
			return old
		},
		Savings: func(rc *models.ResourceChange) float64 {
			return pricing.Price(rc.Type, rc.Change.After).Monthly * previousGenerationSavingsRatio
		},
	}
}

func natGatewayNonProdRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_NAT_GATEWAY_NON_PROD",
		Title:          "NAT gateway in a non-production environment",
		Description:    "Each NAT gateway bills hourly plus per GB processed. Non-production VPCs can usually share one gateway or use VPC endpoints.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_nat_gateway"},
		Category:       models.CostCategoryNetwork,
		Recommendation: "Share a single NAT gateway across availability zones in non-production, and add gateway endpoints for S3 and DynamoDB traffic.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return nonProd(rc.Change.After)
		},
		Savings: func(*models.ResourceChange) float64 {
			return pricing.NATGatewayMonthly
		},
		Evidence: environmentEvidence,
	}
}

// eipUnattachedRule flags Elastic IPs that nothing in the plan associates
// with; AWS bills public IPv4 addresses whether or not they are in use.
func eipUnattachedRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_EIP_UNATTACHED",
		Title:          "Unattached Elastic IP",
		Description:    "The Elastic IP is not associated with an instance, network interface or NAT gateway.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_eip"},
		Category:       models.CostCategoryNetwork,
		Recommendation: "Associate the address or remove it from the configuration.",
		Predicate: func(rc *models.ResourceChange, p *models.Plan) bool {
			cfg := rc.Change.After
			if plan.Has(cfg, "instance") || plan.Has(cfg, "network_interface") {
				return false
			}
			if len(plan.Companions(p, rc, "aws_eip_association", "allocation_id")) > 0 {
				return false
			}
			return len(plan.Companions(p, rc, "aws_nat_gateway", "allocation_id")) == 0
		},
		Savings: func(*models.ResourceChange) float64 {
			return pricing.ElasticIPMonthly
		},
	}
}

func environmentEvidence(rc *models.ResourceChange) map[string]any {
	return map[string]any{"environment": plan.TagValue(rc.Change.After, "environment", "env", "stage")}
}
