package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/compliance"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// ComplianceEngine checks a plan against framework controls (SOC2, HIPAA,
// GDPR) and scores it per framework.
type ComplianceEngine struct {
	base
}

// NewComplianceEngine constructs a ComplianceEngine over registry.
// policyCfg may be nil.
func NewComplianceEngine(registry rules.RuleRegistry, policyCfg *policy.PolicyConfig, logger zerolog.Logger) *ComplianceEngine {
	return &ComplianceEngine{base: newBase(DomainCompliance, models.KindCompliance, registry, policyCfg, logger)}
}

// NewDefaultComplianceEngine constructs a ComplianceEngine over the built-in
// compliance catalog.
func NewDefaultComplianceEngine(policyCfg *policy.PolicyConfig, logger zerolog.Logger) *ComplianceEngine {
	return NewComplianceEngine(rules.NewRegistry(compliance.New()...), policyCfg, logger)
}

// Analyze implements Analyzer. Only rules mapped to one of opts.Frameworks
// are evaluated; every requested framework gets a dimension score.
func (e *ComplianceEngine) Analyze(ctx context.Context, p *models.Plan, opts Options) (*Result, error) {
	frameworks := normalizeFrameworks(opts.Frameworks)
	wanted := make(map[string]struct{}, len(frameworks))
	for _, fw := range frameworks {
		wanted[fw] = struct{}{}
	}

	findings, ruleErrors, err := e.evaluate(ctx, p, opts, func(r rules.Rule) bool {
		_, ok := wanted[r.Framework]
		return ok
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Domain:   e.domain,
		Score:    rules.ScoreFromFindings(findings, rules.CompliancePenalties, len(p.ResourceChanges), true),
		Findings: findings,
		DimensionScores: rules.DimensionScores(findings, rules.CompliancePenalties,
			func(f models.Finding) string { return f.Framework }, frameworks),
		RuleErrors: ruleErrors,
	}, nil
}

// normalizeFrameworks upper-cases and de-duplicates fws, falling back to
// every supported framework when none are given.
func normalizeFrameworks(fws []string) []string {
	if len(fws) == 0 {
		return compliance.Frameworks()
	}
	seen := make(map[string]struct{}, len(fws))
	out := make([]string, 0, len(fws))
	for _, fw := range fws {
		fw = strings.ToUpper(strings.TrimSpace(fw))
		if fw == "" {
			continue
		}
		if _, dup := seen[fw]; dup {
			continue
		}
		seen[fw] = struct{}{}
		out = append(out, fw)
	}
	if len(out) == 0 {
		return compliance.Frameworks()
	}
	return out
}
