package compliance

import (
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// minAuditLogRetentionDays is the retention floor for log groups. A
// retention of 0 means "never expire" and is compliant.
const minAuditLogRetentionDays = 90

func cloudTrailMultiRegionRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_CLOUDTRAIL_MULTI_REGION",
		Title:          "CloudTrail trail is not multi-region",
		Description:    "The trail records API activity in a single region only. Activity in other regions goes unmonitored.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_cloudtrail"},
		Framework:      FrameworkSOC2,
		Control:        "CC7.2",
		Recommendation: "Set is_multi_region_trail = true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return !plan.IsTrue(rc.Change.After, "is_multi_region_trail")
		},
	}
}

func cloudTrailLogValidationRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_CLOUDTRAIL_LOG_VALIDATION",
		Title:          "CloudTrail log file validation disabled",
		Description:    "Without log file validation, tampering with delivered trail logs cannot be detected.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_cloudtrail"},
		Framework:      FrameworkSOC2,
		Control:        "CC7.2",
		Recommendation: "Set enable_log_file_validation = true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return !plan.IsTrue(rc.Change.After, "enable_log_file_validation")
		},
	}
}

// kmsKeyRotationRule only applies to symmetric keys; AWS does not support
// automatic rotation of asymmetric or HMAC keys.
func kmsKeyRotationRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_KMS_KEY_ROTATION",
		Title:          "KMS key rotation disabled",
		Description:    "Automatic yearly rotation is not enabled for the customer managed key.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_kms_key"},
		Framework:      FrameworkSOC2,
		Control:        "CC6.1",
		Recommendation: "Set enable_key_rotation = true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			spec := plan.String(rc.Change.After, "customer_master_key_spec")
			if spec != "" && spec != "SYMMETRIC_DEFAULT" {
				return false
			}
			return !plan.IsTrue(rc.Change.After, "enable_key_rotation")
		},
	}
}

func auditLogRetentionRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_AUDIT_LOG_RETENTION",
		Title:          "Log group retention below 90 days",
		Description:    "Log events expire before the 90-day window needed to reconstruct processing activity.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_cloudwatch_log_group"},
		Framework:      FrameworkGDPR,
		Control:        "Art.30",
		Recommendation: "Set retention_in_days to 90 or more, or 0 to keep events indefinitely.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			days, ok := plan.Number(rc.Change.After, "retention_in_days")
			return ok && days > 0 && days < minAuditLogRetentionDays
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			days, _ := plan.Number(rc.Change.After, "retention_in_days")
			return map[string]any{"retention_in_days": days}
		},
	}
}
