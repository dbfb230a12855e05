package findings

import "github.com/pankaj-dahiya-devops/shiftleft/internal/models"

// Summary counts processed findings along every grouping axis.
type Summary struct {
	Total      int                     `json:"total"`
	ByKind     map[models.Kind]int     `json:"by_kind"`
	BySeverity map[models.Severity]int `json:"by_severity"`
	ByResource map[string]int          `json:"by_resource"`
	Critical   int                     `json:"critical"`
	High       int                     `json:"high"`
	Medium     int                     `json:"medium"`
	Low        int                     `json:"low"`
}

// Criteria selects findings in Filter. Zero-valued fields are ignored; every
// set field must match.
type Criteria struct {
	Kind      models.Kind
	Severity  models.Severity
	Resource  string
	RuleID    string
	Framework string
	Category  string
}

func (c Criteria) match(f models.ProcessedFinding) bool {
	switch {
	case c.Kind != "" && f.Kind != c.Kind:
		return false
	case c.Severity != "" && f.Severity != c.Severity:
		return false
	case c.Resource != "" && f.Resource != c.Resource:
		return false
	case c.RuleID != "" && f.RuleID != c.RuleID:
		return false
	case c.Framework != "" && f.Framework != c.Framework:
		return false
	case c.Category != "" && f.Category != c.Category:
		return false
	}
	return true
}

// Filter returns the findings matching every set field of c, in input order.
func Filter(findings []models.ProcessedFinding, c Criteria) []models.ProcessedFinding {
	out := make([]models.ProcessedFinding, 0, len(findings))
	for _, f := range findings {
		if c.match(f) {
			out = append(out, f)
		}
	}
	return out
}

// AtOrAbove returns the findings whose severity is at least min. An empty
// min returns every finding.
func AtOrAbove(findings []models.ProcessedFinding, min models.Severity) []models.ProcessedFinding {
	out := make([]models.ProcessedFinding, 0, len(findings))
	for _, f := range findings {
		if min == "" || f.Severity.Weight() >= min.Weight() {
			out = append(out, f)
		}
	}
	return out
}

// GroupByKind buckets findings by kind, preserving order within a bucket.
func GroupByKind(findings []models.ProcessedFinding) map[models.Kind][]models.ProcessedFinding {
	out := make(map[models.Kind][]models.ProcessedFinding)
	for _, f := range findings {
		out[f.Kind] = append(out[f.Kind], f)
	}
	return out
}

// GroupBySeverity buckets findings by severity.
func GroupBySeverity(findings []models.ProcessedFinding) map[models.Severity][]models.ProcessedFinding {
	out := make(map[models.Severity][]models.ProcessedFinding)
	for _, f := range findings {
		out[f.Severity] = append(out[f.Severity], f)
	}
	return out
}

// GroupByResource buckets findings by resource address.
func GroupByResource(findings []models.ProcessedFinding) map[string][]models.ProcessedFinding {
	out := make(map[string][]models.ProcessedFinding)
	for _, f := range findings {
		out[f.Resource] = append(out[f.Resource], f)
	}
	return out
}

// Summarize counts findings by kind, severity and resource.
func Summarize(findings []models.ProcessedFinding) Summary {
	s := Summary{
		Total:      len(findings),
		ByKind:     make(map[models.Kind]int),
		BySeverity: make(map[models.Severity]int),
		ByResource: make(map[string]int),
	}
	for _, f := range findings {
		s.ByKind[f.Kind]++
		s.BySeverity[f.Severity]++
		s.ByResource[f.Resource]++
		switch f.Severity {
		case models.SeverityCritical:
			s.Critical++
		case models.SeverityHigh:
			s.High++
		case models.SeverityMedium:
			s.Medium++
		case models.SeverityLow:
			s.Low++
		}
	}
	return s
}
