package security

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// secretName matches parameter names that usually hold credentials.
var secretName = regexp.MustCompile(`(?i)(password|passwd|secret|token|api[_-]?key|private[_-]?key|credential)`)

var iamPolicyTypes = []string{
	"aws_iam_policy",
	"aws_iam_role_policy",
	"aws_iam_user_policy",
	"aws_iam_group_policy",
}

func iamWildcardPolicyRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_IAM_WILDCARD_POLICY",
		Title:          "IAM policy grants all actions",
		Description:    "A policy statement allows Action \"*\", granting full administrative access to every principal it is attached to.",
		Severity:       models.SeverityCritical,
		ResourceTypes:  iamPolicyTypes,
		Category:       CategoryAccessControl,
		Recommendation: "Replace the wildcard with the specific actions and resources the principal needs.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return hasWildcardAllow(plan.String(rc.Change.After, "policy"))
		},
	}
}

// hasWildcardAllow reports whether a policy document has an Allow statement
// whose actions include "*" or "*:*". Unparseable documents (for example
// unknown until apply) are not flagged.
func hasWildcardAllow(doc string) bool {
	if doc == "" {
		return false
	}
	var policy struct {
		Statement json.RawMessage `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(doc), &policy); err != nil {
		return false
	}

	type statement struct {
		Effect string          `json:"Effect"`
		Action json.RawMessage `json:"Action"`
	}
	var stmts []statement
	if err := json.Unmarshal(policy.Statement, &stmts); err != nil {
		var single statement
		if err := json.Unmarshal(policy.Statement, &single); err != nil {
			return false
		}
		stmts = []statement{single}
	}

	for _, s := range stmts {
		if s.Effect != "Allow" {
			continue
		}
		for _, a := range stringOrList(s.Action) {
			if a == "*" || a == "*:*" {
				return true
			}
		}
	}
	return false
}

func stringOrList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}

func cloudTrailLoggingDisabledRule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_CLOUDTRAIL_LOGGING_DISABLED",
		Title:          "CloudTrail logging turned off",
		Description:    "enable_logging is false; the trail exists but records nothing.",
		Severity:       models.SeverityHigh,
		ResourceTypes:  []string{"aws_cloudtrail"},
		Category:       CategoryLogging,
		Recommendation: "Set enable_logging = true.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			return plan.IsFalse(rc.Change.After, "enable_logging")
		},
	}
}

// activeMQRCERule flags Amazon MQ ActiveMQ brokers on versions affected by
// the OpenWire deserialisation RCE.
func activeMQRCERule() rules.Rule {
	return rules.Rule{
		ID:             "SEC_MQ_ACTIVEMQ_RCE",
		Title:          "ActiveMQ broker vulnerable to remote code execution",
		Description:    "The broker runs an ActiveMQ version affected by CVE-2023-46604, which lets an unauthenticated client run arbitrary code over OpenWire.",
		Severity:       models.SeverityCritical,
		ResourceTypes:  []string{"aws_mq_broker"},
		Category:       CategoryNetworkSecurity,
		CVE:            "CVE-2023-46604",
		Recommendation: "Upgrade engine_version to 5.15.16, 5.16.7, 5.17.6, 5.18.3 or later.",
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			if !strings.EqualFold(plan.String(rc.Change.After, "engine_type"), "ActiveMQ") {
				return false
			}
			return vulnerableActiveMQ(plan.String(rc.Change.After, "engine_version"))
		},
		Evidence: func(rc *models.ResourceChange) map[string]any {
			return map[string]any{"engine_version": plan.String(rc.Change.After, "engine_version")}
		},
	}
}

// activeMQFixed maps a 5.x minor line to its first patched release.
// Lines below 5.15 are all affected.
var activeMQFixed = map[int]int{
	15: 16,
	16: 7,
	17: 6,
	18: 3,
}

func vulnerableActiveMQ(version string) bool {
	major, minor, patch, ok := parseVersion(version)
	if !ok || major != 5 {
		return false
	}
	if minor < 15 {
		return true
	}
	fixed, tracked := activeMQFixed[minor]
	return tracked && patch < fixed
}

func parseVersion(v string) (major, minor, patch int, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".", 3)
	if len(parts) < 2 {
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		// Drop build suffixes such as "6-rc1".
		if j := strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' }); j >= 0 {
			p = p[:j]
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], true
}
