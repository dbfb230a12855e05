// Package findings turns the raw findings emitted by the rule engines into
// the validated, enriched, deduplicated and ranked list carried by an
// analysis result. It also provides read-only grouping, filtering and export
// helpers over processed findings.
package findings

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// TenantContext identifies the tenant and analysis run findings belong to.
type TenantContext struct {
	TenantID   string
	AnalysisID string
}

// Processor normalizes raw findings. It holds no run-scoped state and is
// safe for concurrent use.
type Processor struct {
	log zerolog.Logger
	now func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock replaces the processing timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor returns a Processor that logs through logger.
func NewProcessor(logger zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		log: logger.With().Str("component", "findings").Logger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates and normalizes every raw finding, drops duplicates and
// returns the survivors ranked by severity. The first invalid finding aborts
// processing with an error wrapping a *models.ValidationError.
func (p *Processor) Process(raw []models.Finding, tc TenantContext) ([]models.ProcessedFinding, error) {
	ts := p.now().UTC()

	out := make([]models.ProcessedFinding, 0, len(raw))
	for i, f := range raw {
		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		out = append(out, normalize(f, tc, ts))
	}

	deduped := Deduplicate(out)
	Rank(deduped)

	p.log.Debug().
		Str("analysis_id", tc.AnalysisID).
		Int("raw", len(raw)).
		Int("duplicates", len(out)-len(deduped)).
		Int("processed", len(deduped)).
		Msg("findings processed")

	return deduped, nil
}

// Validate reports the first missing required field or out-of-range enum
// value of f as a *models.ValidationError.
func Validate(f models.Finding) error {
	required := []struct {
		field string
		empty bool
	}{
		{"id", f.ID == ""},
		{"kind", f.Kind == ""},
		{"severity", f.Severity == ""},
		{"title", f.Title == ""},
		{"description", f.Description == ""},
		{"resource", f.Resource == ""},
		{"rule_id", f.RuleID == ""},
		{"recommendation", f.Recommendation == ""},
		{"evidence", f.Evidence == nil},
	}
	for _, r := range required {
		if r.empty {
			return models.NewValidationError(r.field, "required")
		}
	}
	if !f.Kind.Valid() {
		return models.NewValidationError("kind", fmt.Sprintf("unknown kind %q", f.Kind))
	}
	if !f.Severity.Valid() {
		return models.NewValidationError("severity", fmt.Sprintf("unknown severity %q", f.Severity))
	}
	return nil
}

// normalize stamps f with the run identifiers and copies its kind-specific
// fields into a fresh evidence map so the engine's map is never shared.
func normalize(f models.Finding, tc TenantContext, ts time.Time) models.ProcessedFinding {
	evidence := make(map[string]any, len(f.Evidence)+3)
	for k, v := range f.Evidence {
		evidence[k] = v
	}
	evidence["severity_score"] = f.Severity.Weight()

	switch f.Kind {
	case models.KindCompliance:
		evidence["framework"] = f.Framework
		evidence["control"] = f.Control
	case models.KindSecurity:
		evidence["category"] = f.Category
		if f.CVE != "" {
			evidence["cve"] = f.CVE
		}
	case models.KindCost, models.KindBestPractice:
		evidence["category"] = f.Category
		evidence["potential_savings"] = f.PotentialSavings
	}
	f.Evidence = evidence

	return models.ProcessedFinding{
		Finding:     f,
		ProcessedAt: ts,
		TenantID:    tc.TenantID,
		AnalysisID:  tc.AnalysisID,
	}
}

type dedupKey struct {
	kind     models.Kind
	resource string
	ruleID   string
}

// Deduplicate keeps the first finding seen for every (kind, resource, rule)
// triple, preserving input order. Running it twice is a no-op.
func Deduplicate(findings []models.ProcessedFinding) []models.ProcessedFinding {
	seen := make(map[dedupKey]bool, len(findings))
	out := make([]models.ProcessedFinding, 0, len(findings))
	for _, f := range findings {
		k := dedupKey{f.Kind, f.Resource, f.RuleID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// Rank sorts findings in place: severity weight descending, then title
// ascending under English collation. Equal findings keep their input order.
func Rank(findings []models.ProcessedFinding) {
	// A Collator keeps internal buffers, so each call gets its own.
	c := collate.New(language.English)
	sort.SliceStable(findings, func(i, j int) bool {
		wi, wj := findings[i].Severity.Weight(), findings[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		return c.CompareString(findings[i].Title, findings[j].Title) < 0
	})
}
