package compliance

import (
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// minBackupRetentionDays is the shortest automated backup window accepted
// for systems holding regulated data.
const minBackupRetentionDays = 7

func rdsEncryptionRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_RDS_ENCRYPTION",
		Title:          "RDS storage encryption not enabled",
		Description:    "Database storage is not encrypted at rest. Protected health information requires encryption of stored data.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  []string{"aws_db_instance", "aws_rds_cluster"},
		Framework:      FrameworkHIPAA,
		Control:        "164.312(a)(2)(iv)",
		Recommendation: "Set storage_encrypted = true (and optionally kms_key_id). Encryption cannot be enabled on an existing instance without a snapshot restore.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return !plan.IsTrue(rc.Change.After, "storage_encrypted")
		},
	}
}

func rdsBackupRetentionRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_RDS_BACKUP_RETENTION",
		Title:          "RDS backup retention below 7 days",
		Description:    "Automated backups are kept for less than seven days, which does not meet the data backup plan requirement.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_db_instance", "aws_rds_cluster"},
		Framework:      FrameworkHIPAA,
		Control:        "164.308(a)(7)(ii)(A)",
		Recommendation: "Set backup_retention_period to 7 or more days.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			days, ok := plan.Number(rc.Change.After, "backup_retention_period")
			return ok && days < minBackupRetentionDays
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			days, _ := plan.Number(rc.Change.After, "backup_retention_period")
			return map[string]any{"backup_retention_period": days}
		},
	}
}

func rdsPublicAccessRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_RDS_PUBLIC_ACCESS",
		Title:          "RDS instance publicly accessible",
		Description:    "The database endpoint resolves to a public address. Personal data stores must not be reachable from the internet.",
		Severity:       models.SeverityCritical,
		ResourceTypes:  []string{"aws_db_instance"},
		Framework:      FrameworkGDPR,
		Control:        "Art.32",
		Recommendation: "Set publicly_accessible = false and reach the database through private subnets.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.IsTrue(rc.Change.After, "publicly_accessible")
		},
	}
}

func ebsEncryptionRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_EBS_ENCRYPTION",
		Title:          "EBS volume encryption not enabled",
		Description:    "The block volume is not encrypted at rest.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  []string{"aws_ebs_volume"},
		Framework:      FrameworkGDPR,
		Control:        "Art.32",
		Recommendation: "Set encrypted = true, or enable EBS encryption by default for the account.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return !plan.IsTrue(rc.Change.After, "encrypted")
		},
	}
}

func dynamoDBPITRRule() rules.Rule {
	return rules.Rule{
		ID:             "COMP_DYNAMODB_PITR",
		Title:          "DynamoDB point-in-time recovery disabled",
		Description:    "The table has no point-in-time recovery, so it cannot be restored to a moment before accidental writes or deletes.",
		Severity:       models.SeverityLow,
		ResourceTypes:  []string{"aws_dynamodb_table"},
		Framework:      FrameworkHIPAA,
		Control:        "164.308(a)(7)(ii)(B)",
		Recommendation: "Add a point_in_time_recovery block with enabled = true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return !plan.IsTrue(plan.Block(rc.Change.After, "point_in_time_recovery"), "enabled")
		},
	}
}
