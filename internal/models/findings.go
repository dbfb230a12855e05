package models

import "time"

// Severity represents the impact level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityWeights is the fixed ranking order used for sorting and scoring
// lookups: critical(4) > high(3) > medium(2) > low(1).
var severityWeights = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// Weight returns the numeric rank of s, or 0 for an unknown severity.
func (s Severity) Weight() int {
	return severityWeights[s]
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	_, ok := severityWeights[s]
	return ok
}

// Severities lists every severity from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// Kind identifies which analysis family produced a finding.
type Kind string

const (
	KindCompliance   Kind = "compliance"
	KindSecurity     Kind = "security"
	KindCost         Kind = "cost"
	KindBestPractice Kind = "best_practice"
)

// Valid reports whether k is a known finding kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCompliance, KindSecurity, KindCost, KindBestPractice:
		return true
	}
	return false
}

// Finding is one concrete rule violation on one resource.
// It is the atomic output unit of the rule engines.
type Finding struct {
	ID             string         `json:"id"`
	Kind           Kind           `json:"kind"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Resource       string         `json:"resource"`
	ResourceType   string         `json:"resource_type,omitempty"`
	RuleID         string         `json:"rule_id"`
	Recommendation string         `json:"recommendation"`
	Evidence       map[string]any `json:"evidence"`

	// Compliance fields.
	Framework string `json:"framework,omitempty"`
	Control   string `json:"control,omitempty"`

	// Security and cost fields.
	Category         string  `json:"category,omitempty"`
	CVE              string  `json:"cve,omitempty"`
	PotentialSavings float64 `json:"potential_savings_usd,omitempty"`
}

// FindingID builds the synthetic finding id from a rule and resource address.
func FindingID(ruleID, address string) string {
	return ruleID + ":" + address
}

// ProcessedFinding is a Finding after normalization by the findings
// processor. It is read-only once emitted in a result.
type ProcessedFinding struct {
	Finding
	ProcessedAt time.Time `json:"processed_at"`
	TenantID    string    `json:"tenant_id,omitempty"`
	AnalysisID  string    `json:"analysis_id"`
}
