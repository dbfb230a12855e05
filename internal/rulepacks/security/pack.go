// Package security provides the security rule pack.
// Security rules flag settings that are present in the planned configuration
// and insecure; each rule carries one of the categories below and, where a
// known vulnerability applies, its CVE identifier.
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule.
package security

import "github.com/pankaj-dahiya-devops/shiftleft/internal/rules"

// Security categories.
const (
	CategoryEncryption      = "encryption"
	CategoryAccessControl   = "access_control"
	CategoryNetworkSecurity = "network_security"
	CategoryDataProtection  = "data_protection"
	CategoryLogging         = "logging"
)

// Categories lists every security category. All of them are always present
// in the security dimension scores.
func Categories() []string {
	return []string{
		CategoryEncryption,
		CategoryAccessControl,
		CategoryNetworkSecurity,
		CategoryDataProtection,
		CategoryLogging,
	}
}

// New returns the security rules in evaluation order.
func New() []rules.Rule {
	return []rules.Rule{
		rdsPublicRule(),                   // CRITICAL: database reachable from the internet
		rdsUnencryptedRule(),              // HIGH:     storage_encrypted = false
		ebsUnencryptedRule(),              // MEDIUM:   encrypted = false
		s3PublicACLRule(),                 // HIGH:     public canned ACL
		s3PublicAccessBlockDisabledRule(), // HIGH:     a block flag turned off
		sgOpenAdminPortsRule(),            // HIGH:     SSH/RDP open to the world
		sgOpenAllPortsRule(),              // CRITICAL: every port open to the world
		iamWildcardPolicyRule(),           // CRITICAL: Action "*"
		cloudTrailLoggingDisabledRule(),   // HIGH:     enable_logging = false
		vpcFlowLogsMissingRule(),          // LOW:      no aws_flow_log for the VPC
		lbPlaintextListenerRule(),         // MEDIUM:   HTTP listener without redirect
		instanceIMDSv1Rule(),              // MEDIUM:   http_tokens = optional
		ssmPlaintextSecretRule(),          // MEDIUM:   secret stored as String
		activeMQRCERule(),                 // CRITICAL: CVE-2023-46604
	}
}
