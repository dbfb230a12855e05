package models

import (
	"fmt"
	"time"
)

// AnalysisStatus is the lifecycle state of an analysis run.
type AnalysisStatus string

const (
	StatusInProgress AnalysisStatus = "in_progress"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// RiskLevel is a coarse qualitative security rating.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// StatusUnknown is the per-resource verdict used when no reduction of the
// dimension scores to a single resource has been made.
const StatusUnknown = "unknown"

// SourceControl identifies where the analysed plan came from.
type SourceControl struct {
	RepositoryURL string `json:"repository_url,omitempty"`
	Branch        string `json:"branch,omitempty"`
	Commit        string `json:"commit,omitempty"`
	PullRequestID string `json:"pull_request_id,omitempty"`
}

// Summary aggregates counters and scores across the whole run.
type Summary struct {
	TotalResources    int                `json:"total_resources"`
	ResourcesByChange map[ChangeType]int `json:"resources_by_change"`

	ComplianceScore        float64            `json:"compliance_score"`
	SecurityScore          float64            `json:"security_score"`
	CostScore              float64            `json:"cost_score"`
	FrameworkScores        map[string]float64 `json:"framework_scores,omitempty"`
	SecurityCategoryScores map[string]float64 `json:"security_category_scores,omitempty"`
	CostCategoryScores     map[string]float64 `json:"cost_category_scores,omitempty"`
	RiskLevel              RiskLevel          `json:"risk_level,omitempty"`

	TotalFindings           int     `json:"total_findings"`
	EstimatedMonthlyCost    float64 `json:"estimated_monthly_cost_usd"`
	MonthlyCostDelta        float64 `json:"monthly_cost_delta_usd"`
	PotentialMonthlySavings float64 `json:"potential_monthly_savings_usd"`
	ComplexityScore         float64 `json:"complexity_score"`
}

// ResourceStatus is the per-resource projection of an analysis.
type ResourceStatus struct {
	Address              string     `json:"address"`
	Type                 string     `json:"type"`
	Provider             string     `json:"provider,omitempty"`
	Module               string     `json:"module,omitempty"`
	ChangeType           ChangeType `json:"change_type"`
	ComplianceStatus     string     `json:"compliance_status"`
	SecurityStatus       string     `json:"security_status"`
	EstimatedMonthlyCost float64    `json:"estimated_monthly_cost_usd"`
	FindingCount         int        `json:"finding_count"`
}

// ResultMetadata records how and when a run was performed.
type ResultMetadata struct {
	Timestamp        time.Time      `json:"timestamp"`
	PlanFormat       string         `json:"plan_format"`
	FormatVersion    string         `json:"format_version,omitempty"`
	TerraformVersion string         `json:"terraform_version,omitempty"`
	TenantID         string         `json:"tenant_id,omitempty"`
	DurationMillis   int64          `json:"duration_ms"`
	Source           *SourceControl `json:"source,omitempty"`
	Frameworks       []string       `json:"frameworks,omitempty"`
	SeverityFilter   Severity       `json:"severity_threshold,omitempty"`
}

// AnalysisResult is the aggregate output of one analysis run. It is built
// incrementally while in progress and is immutable once completed or failed.
type AnalysisResult struct {
	ID              string               `json:"id"`
	Status          AnalysisStatus       `json:"status"`
	Summary         Summary              `json:"summary"`
	Findings        []ProcessedFinding   `json:"findings"`
	Resources       []ResourceStatus     `json:"resources"`
	Cost            *CostAnalysis        `json:"cost,omitempty"`
	Recommendations []CostRecommendation `json:"recommendations,omitempty"`
	Metadata        ResultMetadata       `json:"metadata"`
}

// NewAnalysisResult returns an in-progress result with initialised counters.
func NewAnalysisResult(id string, ts time.Time) *AnalysisResult {
	return &AnalysisResult{
		ID:     id,
		Status: StatusInProgress,
		Summary: Summary{
			ResourcesByChange: map[ChangeType]int{
				ChangeCreate: 0,
				ChangeUpdate: 0,
				ChangeDelete: 0,
				ChangeNoOp:   0,
			},
			ComplianceScore: 100,
			SecurityScore:   100,
			CostScore:       100,
		},
		Findings:  []ProcessedFinding{},
		Resources: []ResourceStatus{},
		Metadata:  ResultMetadata{Timestamp: ts},
	}
}

// Complete moves an in-progress result to completed.
func (r *AnalysisResult) Complete() error {
	return r.transition(StatusCompleted)
}

// Fail moves an in-progress result to failed.
func (r *AnalysisResult) Fail() error {
	return r.transition(StatusFailed)
}

// Terminal reports whether the result can no longer change state.
func (r *AnalysisResult) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

func (r *AnalysisResult) transition(to AnalysisStatus) error {
	if r.Status != StatusInProgress {
		return fmt.Errorf("illegal status transition %s -> %s", r.Status, to)
	}
	r.Status = to
	return nil
}
