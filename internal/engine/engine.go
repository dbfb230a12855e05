// Package engine runs the rule catalogs against a parsed plan. There is one
// Analyzer per domain (compliance, security, cost); each owns a read-only
// rule registry fixed at construction and holds no run-scoped state, so a
// single instance can serve concurrent analyses.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// Domain names. They match the policy file domain keys.
const (
	DomainCompliance = policy.DomainCompliance
	DomainSecurity   = policy.DomainSecurity
	DomainCost       = policy.DomainCost
)

// Options configures a single Analyze call.
type Options struct {
	// Frameworks restricts compliance evaluation to the listed frameworks.
	// Empty means every supported framework. Ignored by the other engines.
	Frameworks []string

	// Policy overrides the policy the engine was constructed with.
	Policy *policy.PolicyConfig
}

// Result is the output of one engine over one plan.
type Result struct {
	Domain string `json:"domain"`

	// Score is the overall 0–100 score for the domain.
	Score float64 `json:"score"`

	// Findings are in evaluation order: plan resource order, then rule
	// registration order.
	Findings []models.Finding `json:"findings"`

	// DimensionScores holds per-framework (compliance) or per-category
	// (security, cost) scores.
	DimensionScores map[string]float64 `json:"dimension_scores"`

	// RiskLevel is only set by the security engine.
	RiskLevel models.RiskLevel `json:"risk_level,omitempty"`

	// Cost and Recommendations are only set by the cost engine.
	Cost            *models.CostAnalysis        `json:"cost,omitempty"`
	Recommendations []models.CostRecommendation `json:"recommendations,omitempty"`

	// RuleErrors counts rule evaluations that panicked and were skipped.
	RuleErrors int `json:"rule_errors"`
}

// Analyzer is implemented by every domain engine.
type Analyzer interface {
	Domain() string
	Analyze(ctx context.Context, p *models.Plan, opts Options) (*Result, error)
}

// base holds what every engine shares: its registry, default policy and logger.
type base struct {
	domain   string
	kind     models.Kind
	registry rules.RuleRegistry
	policy   *policy.PolicyConfig
	log      zerolog.Logger
}

func newBase(domain string, kind models.Kind, registry rules.RuleRegistry, policyCfg *policy.PolicyConfig, logger zerolog.Logger) base {
	return base{
		domain:   domain,
		kind:     kind,
		registry: registry,
		policy:   policyCfg,
		log:      logger.With().Str("engine", domain).Logger(),
	}
}

// Domain returns the engine's domain name.
func (b base) Domain() string { return b.domain }

// Rules returns the engine's catalog in evaluation order.
func (b base) Rules() []rules.Rule { return b.registry.All() }

// ValidatePlan rejects the inputs every engine treats as a hard failure.
func ValidatePlan(p *models.Plan) error {
	if p == nil {
		return models.NewValidationError("plan", "required")
	}
	if p.ResourceChanges == nil {
		return models.NewValidationError("resource_changes", "required")
	}
	return nil
}

// evaluate runs the registry over p with the policy applied. keep further
// narrows the rule set; nil keeps every rule the policy leaves enabled.
// It returns the surviving findings and the number of recovered rule panics.
func (b base) evaluate(ctx context.Context, p *models.Plan, opts Options, keep func(rules.Rule) bool) ([]models.Finding, int, error) {
	if err := ValidatePlan(p); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s analysis: %w", b.domain, err)
	}

	cfg := b.policy
	if opts.Policy != nil {
		cfg = opts.Policy
	}

	if !cfg.DomainEnabled(b.domain) {
		b.log.Debug().Msg("domain disabled by policy")
		return []models.Finding{}, 0, nil
	}

	var ruleErrors int
	onError := func(err *models.RuleEvaluationError) {
		ruleErrors++
		b.log.Warn().
			Str("rule_id", err.RuleID).
			Str("address", err.Address).
			Interface("cause", err.Cause).
			Msg("rule evaluation failed; skipping")
	}

	raw := b.registry.Evaluate(p, rules.EvalOptions{
		Engine: b.domain,
		Kind:   b.kind,
		Filter: func(r rules.Rule) bool {
			if !cfg.RuleEnabled(r.ID) {
				return false
			}
			return keep == nil || keep(r)
		},
	}, onError)

	findings := policy.ApplyPolicy(raw, b.domain, cfg)
	if findings == nil {
		findings = []models.Finding{}
	}

	b.log.Debug().
		Int("resources", len(p.ResourceChanges)).
		Int("findings", len(findings)).
		Int("rule_errors", ruleErrors).
		Msg("rules evaluated")

	return findings, ruleErrors, nil
}
