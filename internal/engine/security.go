package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/security"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// SecurityEngine flags insecure settings and derives a risk level.
type SecurityEngine struct {
	base
}

// NewSecurityEngine constructs a SecurityEngine over registry.
// policyCfg may be nil.
func NewSecurityEngine(registry rules.RuleRegistry, policyCfg *policy.PolicyConfig, logger zerolog.Logger) *SecurityEngine {
	return &SecurityEngine{base: newBase(DomainSecurity, models.KindSecurity, registry, policyCfg, logger)}
}

// NewDefaultSecurityEngine constructs a SecurityEngine over the built-in
// security catalog.
func NewDefaultSecurityEngine(policyCfg *policy.PolicyConfig, logger zerolog.Logger) *SecurityEngine {
	return NewSecurityEngine(rules.NewRegistry(security.New()...), policyCfg, logger)
}

// Analyze implements Analyzer. Every security category always has a
// dimension score.
func (e *SecurityEngine) Analyze(ctx context.Context, p *models.Plan, opts Options) (*Result, error) {
	findings, ruleErrors, err := e.evaluate(ctx, p, opts, nil)
	if err != nil {
		return nil, err
	}

	return &Result{
		Domain:   e.domain,
		Score:    rules.ScoreFromFindings(findings, rules.SecurityPenalties, len(p.ResourceChanges), true),
		Findings: findings,
		DimensionScores: rules.DimensionScores(findings, rules.SecurityPenalties,
			func(f models.Finding) string { return f.Category }, security.Categories()),
		RiskLevel:  RiskLevel(findings),
		RuleErrors: ruleErrors,
	}, nil
}

// RiskLevel derives a qualitative rating from the severity distribution:
//   - any critical finding ⇒ critical
//   - more than two high ⇒ high
//   - at least one high, or more than five medium ⇒ medium
//   - otherwise low
func RiskLevel(findings []models.Finding) models.RiskLevel {
	var critical, high, medium int
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		}
	}

	switch {
	case critical > 0:
		return models.RiskCritical
	case high > 2:
		return models.RiskHigh
	case high > 0 || medium > 5:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
