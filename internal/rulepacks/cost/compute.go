package cost

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/pricing"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

const (
	// previousGenerationSavingsRatio is the typical price-performance gain of
	// moving to the current generation of the same family.
	previousGenerationSavingsRatio = 0.10

	// oversizedSavingsRatio assumes one size down halves the price.
	oversizedSavingsRatio = 0.50

	// oversizedMinMultiple is the smallest "<n>xlarge" size treated as
	// oversized for a workload that has not been right-sized yet.
	oversizedMinMultiple = 4
)

// previousGenerationEC2 lists instance families with a cheaper successor.
var previousGenerationEC2 = map[string]string{
	"t2": "t3",
	"m4": "m5",
	"c4": "c5",
	"r4": "r5",
}

func ec2PreviousGenerationRule() rules.Rule {
	return rules.Rule{
		ID:            "COST_EC2_PREVIOUS_GENERATION",
		Title:         "Previous-generation EC2 instance type",
		Description:   "The instance uses a previous-generation family that costs more for the same capacity than its successor.",
		Severity:      models.SeverityLow,
		ResourceTypes: []string{"aws_instance"},
		Category:      models.CostCategoryCompute,
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			_, old := previousGenerationEC2[pricing.InstanceFamily(plan.String(rc.Change.After, "instance_type"))]
			return old
		},
		Recommend: func(rc *models.ResourceChange) string {
			it := plan.String(rc.Change.After, "instance_type")
			next := previousGenerationEC2[pricing.InstanceFamily(it)]
			return fmt.Sprintf("Move %s from %s to the %s family.", rc.Address, it, next)
		},
		Savings: func(rc *models.ResourceChange) float64 {
			return pricing.Price(rc.Type, rc.Change.After).Monthly * previousGenerationSavingsRatio
		},
		Evidence: instanceTypeEvidence,
	}
}

func ec2OversizedRule() rules.Rule {
	return rules.Rule{
		ID:             "COST_EC2_OVERSIZED",
		Title:          "Large EC2 instance size",
		Description:    "The instance is 4xlarge or bigger. New instances are rarely right-sized at that scale before load data exists.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_instance"},
		Category:       models.CostCategoryCompute,
		Recommendation: "Start one or two sizes smaller and scale up from observed utilisation, or use an Auto Scaling group.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return oversized(plan.String(rc.Change.After, "instance_type"))
		},
		Savings: func(rc *models.ResourceChange) float64 {
			return pricing.Price(rc.Type, rc.Change.After).Monthly * oversizedSavingsRatio
		},
		Evidence: instanceTypeEvidence,
	}
}

// oversized reports whether an instance type is metal or at least
// oversizedMinMultiple xlarge.
func oversized(instanceType string) bool {
	size := pricing.InstanceSize(instanceType)
	if strings.HasPrefix(size, "metal") {
		return true
	}
	multiple, ok := strings.CutSuffix(size, "xlarge")
	if !ok || multiple == "" {
		return false
	}
	n, err := strconv.Atoi(multiple)
	return err == nil && n >= oversizedMinMultiple
}

func instanceTypeEvidence(rc *models.ResourceChange) map[string]any {
	return map[string]any{"instance_type": plan.String(rc.Change.After, "instance_type")}
}
