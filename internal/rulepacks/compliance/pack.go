// Package compliance provides the compliance rule pack.
// Every rule maps a required control to one framework (SOC2, HIPAA or GDPR)
// and a control identifier; a finding means the control is absent from the
// planned configuration.
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule.
package compliance

import "github.com/pankaj-dahiya-devops/shiftleft/internal/rules"

// Supported frameworks.
const (
	FrameworkSOC2  = "SOC2"
	FrameworkHIPAA = "HIPAA"
	FrameworkGDPR  = "GDPR"
)

// Frameworks returns the frameworks evaluated when a request names none.
func Frameworks() []string {
	return []string{FrameworkSOC2, FrameworkHIPAA, FrameworkGDPR}
}

// New returns the compliance rules in evaluation order.
func New() []rules.Rule {
	return []rules.Rule{
		s3EncryptionRule(),            // HIGH:     SOC2 CC6.1
		s3PublicAccessBlockRule(),     // HIGH:     SOC2 CC6.6
		s3VersioningRule(),            // MEDIUM:   SOC2 A1.2
		rdsEncryptionRule(),           // HIGH:     HIPAA 164.312(a)(2)(iv)
		rdsBackupRetentionRule(),      // MEDIUM:   HIPAA 164.308(a)(7)(ii)(A)
		rdsPublicAccessRule(),         // CRITICAL: GDPR Art.32
		ebsEncryptionRule(),           // HIGH:     GDPR Art.32
		cloudTrailMultiRegionRule(),   // MEDIUM:   SOC2 CC7.2
		cloudTrailLogValidationRule(), // MEDIUM:   SOC2 CC7.2
		kmsKeyRotationRule(),          // MEDIUM:   SOC2 CC6.1
		dynamoDBPITRRule(),            // LOW:      HIPAA 164.308(a)(7)(ii)(B)
		auditLogRetentionRule(),       // LOW:      GDPR Art.30
	}
}
