package policy

import (
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// ShouldFail reports whether any finding in findings has a severity at or above
// the configured fail_on_severity threshold for the given domain.
//
// It returns false when:
//   - cfg is nil (no policy loaded)
//   - no enforcement block is configured for domain
//   - fail_on_severity is empty or an unrecognised value
//   - findings is empty
func ShouldFail(domain string, findings []models.Finding, cfg *PolicyConfig) bool {
	if cfg == nil {
		return false
	}
	enfCfg, ok := cfg.Enforcement[domain]
	if !ok || enfCfg.FailOnSeverity == "" {
		return false
	}
	threshold, ok := ParseSeverity(enfCfg.FailOnSeverity)
	if !ok {
		return false
	}
	for _, f := range findings {
		if f.Severity.Valid() && f.Severity.Weight() >= threshold.Weight() {
			return true
		}
	}
	return false
}

// FindingsForKind returns the findings of the given kinds. It lets callers
// apply per-domain enforcement to a merged finding list.
func FindingsForKind(findings []models.Finding, kinds ...models.Kind) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		for _, k := range kinds {
			if f.Kind == k {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
