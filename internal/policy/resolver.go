package policy

import (
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// ApplyPolicy applies cfg to the findings of one domain:
//   - a disabled domain yields no findings
//   - disabled rules are dropped
//   - rule severity overrides are applied
//   - findings below the domain min_severity are dropped (after overrides)
//
// Unknown severity strings are ignored. The input slice is not modified.
func ApplyPolicy(findings []models.Finding, domain string, cfg *PolicyConfig) []models.Finding {
	if cfg == nil {
		return findings
	}

	// Domain-level disable
	if !cfg.DomainEnabled(domain) {
		return []models.Finding{}
	}

	minWeight := 0
	if sev, ok := ParseSeverity(cfg.Domains[domain].MinSeverity); ok {
		minWeight = sev.Weight()
	}

	result := make([]models.Finding, 0, len(findings))

	for _, f := range findings {
		ruleCfg, hasRule := cfg.Rules[f.RuleID]

		// Rule-level disable
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}

		// Severity override
		if hasRule {
			if sev, ok := ParseSeverity(ruleCfg.Severity); ok {
				f.Severity = sev
			}
		}

		if f.Severity.Weight() < minWeight {
			continue
		}

		result = append(result, f)
	}

	return result
}
