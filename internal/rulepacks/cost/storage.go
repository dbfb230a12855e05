package cost

import (
	"math"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/pricing"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

const (
	// ebsGP2SavingsPerGBMonth is the gp2 ($0.10/GB-mo) to gp3 ($0.08/GB-mo)
	// price difference.
	ebsGP2SavingsPerGBMonth = 0.02

	// gp3 includes a 3000 IOPS baseline; extra IOPS cost $0.005 each.
	gp3BaselineIOPS     = 3000
	gp3ExtraIOPSMonthly = 0.005
)

func ebsGP2LegacyRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_EBS_GP2_LEGACY",
		Title:          "Legacy gp2 EBS volume",
		Description:    "gp2 volumes are legacy and more expensive than gp3.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_ebs_volume"},
		Category:       models.CostCategoryStorage,
		Recommendation: "Set type = \"gp3\"; gp3 is about 20% cheaper per GB with a higher baseline.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.String(rc.Change.After, "type") == "gp2"
		},
		Savings: func(rc *models.ResourceChange) float64 {
			return volumeSize(rc.Change.After) * ebsGP2SavingsPerGBMonth
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			return map[string]any{"volume_type": "gp2", "size_gb": volumeSize(rc.Change.After)}
		},
	}
}

func ebsProvisionedIOPSRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_EBS_PROVISIONED_IOPS",
		Title:          "Provisioned IOPS EBS volume",
		Description:    "io1/io2 volumes bill every provisioned IOPS. gp3 covers most workloads up to 16000 IOPS at a fraction of the price.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_ebs_volume"},
		Category:       models.CostCategoryStorage,
		Recommendation: "Use gp3 with explicit iops and throughput unless the workload needs io2 durability or more than 16000 IOPS.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			switch plan.String(rc.Change.After, "type") {
			case "io1", "io2":
				return true
			}
			return false
		},
		Savings: func(rc *models.ResourceChange) float64 {
			current := pricing.Price(rc.Type, rc.Change.After).Monthly
			iops, _ := plan.Number(rc.Change.After, "iops")
			gp3PerGB, _ := pricing.VolumePerGBMonthly("gp3")
			gp3 := volumeSize(rc.Change.After)*gp3PerGB + math.Max(0, iops-gp3BaselineIOPS)*gp3ExtraIOPSMonthly
			return math.Max(0, current-gp3)
		},
	}
}

func s3NoLifecycleRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_S3_NO_LIFECYCLE",
		Title:          "S3 bucket without lifecycle rules",
		Description:    "Objects stay in the Standard storage class forever; noncurrent versions and stale data keep accruing charges.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_s3_bucket"},
		Category:       models.CostCategoryStorage,
		Recommendation: "Add an aws_s3_bucket_lifecycle_configuration that transitions or expires old objects and noncurrent versions.",
		Predicate: func(rc *models.ResourceChange, p *models.Plan) bool {
			if plan.Has(rc.Change.After, "lifecycle_rule") {
				return false
			}
			return len(plan.Companions(p, rc, "aws_s3_bucket_lifecycle_configuration", "bucket")) == 0
		},
	}
}

func volumeSize(cfg map[string]any) float64 {
	if size, ok := plan.Number(cfg, "size"); ok {
		return size
	}
	return pricing.DefaultEBSSizeGB
}
