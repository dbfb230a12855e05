package analysis

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/compliance"
)

// ScanOptions toggles engines and narrows the analysis. Nil Include* flags
// mean enabled.
type ScanOptions struct {
	IncludeComplianceChecks *bool    `json:"include_compliance_checks,omitempty"`
	IncludeSecurityChecks   *bool    `json:"include_security_checks,omitempty"`
	IncludeCostAnalysis     *bool    `json:"include_cost_analysis,omitempty"`
	Frameworks              []string `json:"frameworks,omitempty"`

	// SeverityThreshold drops returned findings below this severity. Scores
	// and summary counters are computed before the filter.
	SeverityThreshold string `json:"severity_threshold,omitempty"`
}

// Request is one analysis submission.
type Request struct {
	PlanData    string                `json:"plan_data"`
	PlanFormat  plan.Format           `json:"plan_format"`
	TenantID    string                `json:"tenant_id,omitempty"`
	Source      *models.SourceControl `json:"source,omitempty"`
	ScanOptions ScanOptions           `json:"scan_options"`

	// Policy overrides the engines' policy for this run only.
	Policy *policy.PolicyConfig `json:"-"`
}

// Bool returns a pointer to b, for building ScanOptions literals.
func Bool(b bool) *bool { return &b }

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

func (o ScanOptions) complianceEnabled() bool { return enabled(o.IncludeComplianceChecks) }
func (o ScanOptions) securityEnabled() bool   { return enabled(o.IncludeSecurityChecks) }
func (o ScanOptions) costEnabled() bool       { return enabled(o.IncludeCostAnalysis) }

// frameworks returns the requested frameworks upper-cased and deduplicated,
// or every supported framework when none were requested.
func (o ScanOptions) frameworks() []string {
	if len(o.Frameworks) == 0 {
		return compliance.Frameworks()
	}
	seen := make(map[string]bool, len(o.Frameworks))
	out := make([]string, 0, len(o.Frameworks))
	for _, fw := range o.Frameworks {
		fw = strings.ToUpper(strings.TrimSpace(fw))
		if !seen[fw] {
			seen[fw] = true
			out = append(out, fw)
		}
	}
	return out
}

// threshold returns the parsed severity threshold, or "" when unset.
func (o ScanOptions) threshold() models.Severity {
	sev, _ := policy.ParseSeverity(o.SeverityThreshold)
	return sev
}

func (r Request) format() plan.Format {
	if r.PlanFormat == "" {
		return plan.FormatJSON
	}
	return r.PlanFormat
}

// ValidateRequest checks the request shape before any parsing happens.
// An empty plan format defaults to json.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.PlanData) == "" {
		return models.NewValidationError("plan_data", "required")
	}
	if !req.format().Valid() {
		return models.NewValidationError("plan_format", fmt.Sprintf("unsupported format %q (valid: json, binary)", req.PlanFormat))
	}

	supported := make(map[string]bool)
	for _, fw := range compliance.Frameworks() {
		supported[fw] = true
	}
	for _, fw := range req.ScanOptions.frameworks() {
		if !supported[fw] {
			return models.NewValidationError("scan_options.frameworks", fmt.Sprintf("unknown framework %q", fw))
		}
	}

	if t := req.ScanOptions.SeverityThreshold; t != "" {
		if _, ok := policy.ParseSeverity(t); !ok {
			return models.NewValidationError("scan_options.severity_threshold", fmt.Sprintf("invalid severity %q", t))
		}
	}
	return nil
}
