// Package policy loads the optional YAML policy file that tunes the fixed
// rule catalogs: domains and rules can be switched off, rule severities
// overridden, low-severity noise dropped, and CI failure thresholds set.
// It does not define new rules.
package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// Domain names used as keys in the domains and enforcement sections.
const (
	DomainCompliance = "compliance"
	DomainSecurity   = "security"
	DomainCost       = "cost"
)

type PolicyConfig struct {
	Version     int                          `yaml:"version"`
	Domains     map[string]DomainConfig      `yaml:"domains"`
	Rules       map[string]RuleConfig        `yaml:"rules"`
	Enforcement map[string]EnforcementConfig `yaml:"enforcement"`
}

type DomainConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MinSeverity string `yaml:"min_severity,omitempty"`
}

type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Severity string `yaml:"severity,omitempty"`
}

// EnforcementConfig sets the severity at which a domain fails a CI run.
type EnforcementConfig struct {
	FailOnSeverity string `yaml:"fail_on_severity,omitempty"`
}

// ParseSeverity maps a case-insensitive severity string to a Severity.
// The second result is false for unknown values.
func ParseSeverity(s string) (models.Severity, bool) {
	sev := models.Severity(strings.ToLower(strings.TrimSpace(s)))
	return sev, sev.Valid()
}

// DomainEnabled reports whether domain is enabled. Domains absent from the
// policy, and a nil policy, are enabled.
func (c *PolicyConfig) DomainEnabled(domain string) bool {
	if c == nil {
		return true
	}
	d, ok := c.Domains[domain]
	return !ok || d.Enabled
}

// RuleEnabled reports whether the rule with id is enabled.
func (c *PolicyConfig) RuleEnabled(id string) bool {
	if c == nil {
		return true
	}
	rc, ok := c.Rules[id]
	return !ok || rc.Enabled == nil || *rc.Enabled
}
