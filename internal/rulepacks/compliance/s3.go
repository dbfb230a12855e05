package compliance

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

const (
	typeS3Bucket            = "aws_s3_bucket"
	typeS3Encryption        = "aws_s3_bucket_server_side_encryption_configuration"
	typeS3PublicAccessBlock = "aws_s3_bucket_public_access_block"
	typeS3Versioning        = "aws_s3_bucket_versioning"
)

// publicAccessBlockFlags are the four settings that together block every
// form of public bucket access.
var publicAccessBlockFlags = []string{
	"block_public_acls",
	"block_public_policy",
	"ignore_public_acls",
	"restrict_public_buckets",
}

// s3EncryptionRule requires default server-side encryption, declared either
// inline (provider v3 style) or through the dedicated configuration resource.
func s3EncryptionRule() rules.Rule {
	return rules.Rule{
		ID:            "COMP_S3_ENCRYPTION",
		Title:         "S3 bucket default encryption not configured",
		Description:   "The bucket has no default server-side encryption configuration, so objects may be stored unencrypted at rest.",
		Severity:      models.SeverityHigh,
		ResourceTypes: []string{typeS3Bucket},
		Framework:     FrameworkSOC2,
		Control:       "CC6.1",
		Predicate: func(rc *models.ResourceChange, p *models.Plan) bool {
			if plan.Has(rc.Change.After, "server_side_encryption_configuration") {
				return false
			}
			return len(plan.Companions(p, rc, typeS3Encryption, "bucket")) == 0
		},
		Recommend: func(rc *models.ResourceChange) string {
			return fmt.Sprintf("Add an %s resource for %s using SSE-KMS or AES256.", typeS3Encryption, rc.Address)
		},
	}
}

// s3PublicAccessBlockRule requires a public access block with all four flags.
func s3PublicAccessBlockRule() rules.Rule {
	return rules.Rule{
		ID:            "COMP_S3_PUBLIC_ACCESS_BLOCK",
		Title:         "S3 bucket public access block missing",
		Description:   "The bucket is not covered by a public access block with all four settings enabled.",
		Severity:      models.SeverityHigh,
		ResourceTypes: []string{typeS3Bucket},
		Framework:     FrameworkSOC2,
		Control:       "CC6.6",
		Predicate: func(rc *models.ResourceChange, p *models.Plan) bool {
			for _, pab := range plan.Companions(p, rc, typeS3PublicAccessBlock, "bucket") {
				if allTrue(pab.Change.After, publicAccessBlockFlags) {
					return false
				}
			}
			return true
		},
		Recommendation: "Add an aws_s3_bucket_public_access_block with block_public_acls, block_public_policy, ignore_public_acls and restrict_public_buckets set to true.",
	}
}

// s3VersioningRule flags versioning that is explicitly turned off. Buckets
// that never mention versioning are not flagged.
func s3VersioningRule() rules.Rule {
	return rules.Rule{
		ID:            "COMP_S3_VERSIONING",
		Title:         "S3 bucket versioning disabled",
		Description:   "Versioning is explicitly disabled, so overwritten or deleted objects cannot be recovered.",
		Severity:      models.SeverityMedium,
		ResourceTypes: []string{typeS3Bucket},
		Framework:     FrameworkSOC2,
		Control:       "A1.2",
		Predicate: func(rc *models.ResourceChange, p *models.Plan) bool {
			if v := plan.Block(rc.Change.After, "versioning"); v != nil && plan.IsFalse(v, "enabled") {
				return true
			}
			for _, ver := range plan.Companions(p, rc, typeS3Versioning, "bucket") {
				conf := plan.Block(ver.Change.After, "versioning_configuration")
				switch plan.String(conf, "status") {
				case "Disabled", "Suspended":
					return true
				}
			}
			return false
		},
		Recommendation: "Enable versioning on the bucket through an aws_s3_bucket_versioning resource with status \"Enabled\".",
	}
}

func allTrue(cfg map[string]any, keys []string) bool {
	for _, k := range keys {
		if !plan.IsTrue(cfg, k) {
			return false
		}
	}
	return true
}
