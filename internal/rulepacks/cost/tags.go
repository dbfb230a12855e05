package cost

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// costAllocationTags must be present on billable resources so spend can be
// attributed. Each entry lists the accepted spellings of one tag.
var costAllocationTags = [][]string{
	{"Environment", "env"},
	{"Owner", "team"},
	{"CostCenter", "cost-center", "cost_center"},
}

// billableTypes are the resource types the tagging rule inspects.
var billableTypes = []string{
	"aws_instance",
	"aws_ebs_volume",
	"aws_db_instance",
	"aws_rds_cluster",
	"aws_nat_gateway",
	"aws_lb",
	"aws_eip",
	"aws_s3_bucket",
	"aws_dynamodb_table",
	"aws_elasticache_cluster",
}

func missingTags(cfg map[string]any) []string {
	var missing []string
	for _, spellings := range costAllocationTags {
		if plan.TagValue(cfg, spellings...) == "" {
			missing = append(missing, spellings[0])
		}
	}
	return missing
}

// missingCostTagsRule is a hygiene check rather than a saving, so it is
// reported as best_practice.
func missingCostTagsRule() rules.Rule {
	return rules.Rule{
		ID:            "COST_MISSING_COST_TAGS",
		Title:         "Missing cost allocation tags",
		Description:   "The resource lacks one or more cost allocation tags, so its spend cannot be attributed to an owner or environment.",
		Severity:      models.SeverityLow,
		Kind:          models.KindBestPractice,
		ResourceTypes: billableTypes,
		Category:      models.CostCategoryOther,
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return len(missingTags(rc.Change.After)) > 0
		},
		Recommend: func(rc *models.ResourceChange) string {
			return fmt.Sprintf("Add the %s tags to %s, or set them once through the provider default_tags block.",
				strings.Join(missingTags(rc.Change.After), ", "), rc.Address)
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			return map[string]any{"missing_tags": missingTags(rc.Change.After)}
		},
	}
}
