package security

import (
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// publicCannedACLs grant read or write access beyond the bucket owner.
var publicCannedACLs = map[string]struct{}{
	"public-read":        {},
	"public-read-write":  {},
	"authenticated-read": {},
}

var publicAccessBlockFlags = []string{
	"block_public_acls",
	"block_public_policy",
	"ignore_public_acls",
	"restrict_public_buckets",
}

func rdsPublicRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_RDS_PUBLIC",
		Title:          "RDS instance publicly accessible",
		Description:    "The database is assigned a public endpoint and can be reached from outside the VPC.",
		Severity:       models.SeverityCritical,
		ResourceTypes:  []string{"aws_db_instance", "aws_rds_cluster_instance"},
		Category:       CategoryNetworkSecurity,
		Recommendation: "Set publicly_accessible = false and place the instance in private subnets.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.IsTrue(rc.Change.After, "publicly_accessible")
		},
	}
}

func rdsUnencryptedRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_RDS_UNENCRYPTED",
		Title:          "RDS storage explicitly unencrypted",
		Description:    "storage_encrypted is set to false; snapshots and replicas inherit the unencrypted storage.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  []string{"aws_db_instance", "aws_rds_cluster"},
		Category:       CategoryEncryption,
		Recommendation: "Set storage_encrypted = true with a customer managed KMS key.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.IsFalse(rc.Change.After, "storage_encrypted")
		},
	}
}

func ebsUnencryptedRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_EBS_UNENCRYPTED",
		Title:          "EBS volume explicitly unencrypted",
		Description:    "encrypted is set to false, so the volume and its snapshots are stored in clear text.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_ebs_volume"},
		Category:       CategoryEncryption,
		Recommendation: "Set encrypted = true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.IsFalse(rc.Change.After, "encrypted")
		},
	}
}

func s3PublicACLRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_S3_PUBLIC_ACL",
		Title:          "S3 bucket uses a public ACL",
		Description:    "A canned ACL grants access to all users or all authenticated AWS users.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  []string{"aws_s3_bucket", "aws_s3_bucket_acl"},
		Category:       CategoryAccessControl,
		Recommendation: "Use the private ACL (or disable ACLs with BucketOwnerEnforced) and grant access through bucket policies.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			_, public := publicCannedACLs[plan.String(rc.Change.After, "acl")]
			return public
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			return map[string]any{"acl": plan.String(rc.Change.After, "acl")}
		},
	}
}

func s3PublicAccessBlockDisabledRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_S3_PUBLIC_ACCESS_BLOCK_DISABLED",
		Title:          "S3 public access block setting disabled",
		Description:    "At least one public access block setting is explicitly turned off.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  []string{"aws_s3_bucket_public_access_block", "aws_s3_account_public_access_block"},
		Category:       CategoryDataProtection,
		Recommendation: "Set all four public access block settings to true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return len(disabledFlags(rc.Change.After)) > 0
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			return map[string]any{"disabled_settings": disabledFlags(rc.Change.After)}
		},
	}
}

func disabledFlags(cfg map[string]any) []string {
	var out []string
	for _, f := range publicAccessBlockFlags {
		if plan.IsFalse(cfg, f) {
			out = append(out, f)
		}
	}
	return out
}

func ssmPlaintextSecretRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_SSM_PLAINTEXT_SECRET",
		Title:          "Secret stored as plaintext SSM parameter",
		Description:    "A parameter whose name suggests a credential is stored as type String instead of SecureString.",
		Severity:       models.SeverityMedium,
		ResourceTypes:  []string{"aws_ssm_parameter"},
		Category:       CategoryDataProtection,
		Recommendation: "Store credentials as SecureString parameters encrypted with KMS, or in Secrets Manager.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			if plan.String(rc.Change.After, "type") == "SecureString" {
				return false
			}
			return secretName.MatchString(plan.String(rc.Change.After, "name"))
		},
	}
}
