package policy

import (
	"testing"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestApplyPolicy_DomainDisabled(t *testing.T) {
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"cost": {Enabled: false},
		},
	}

	findings := []models.Finding{
		{RuleID: "COST_EC2_OVERSIZED"},
	}

	result := ApplyPolicy(findings, "cost", cfg)

	if len(result) != 0 {
		t.Fatalf("expected all findings dropped")
	}
}

func TestApplyPolicy_RuleDisabled(t *testing.T) {
	cfg := &PolicyConfig{
		Rules: map[string]RuleConfig{
			"COST_EC2_OVERSIZED": {Enabled: boolPtr(false)},
		},
	}

	findings := []models.Finding{
		{RuleID: "COST_EC2_OVERSIZED"},
		{RuleID: "COST_EIP_UNATTACHED"},
	}

	result := ApplyPolicy(findings, "cost", cfg)

	if len(result) != 1 {
		t.Fatalf("expected one finding remaining")
	}
	if result[0].RuleID != "COST_EIP_UNATTACHED" {
		t.Fatalf("wrong finding kept")
	}
}

func TestApplyPolicy_SeverityOverride(t *testing.T) {
	cfg := &PolicyConfig{
		Rules: map[string]RuleConfig{
			"COST_EC2_OVERSIZED": {Severity: "CRITICAL"},
		},
	}

	findings := []models.Finding{
		{RuleID: "COST_EC2_OVERSIZED", Severity: models.SeverityMedium},
	}

	result := ApplyPolicy(findings, "cost", cfg)

	if result[0].Severity != models.SeverityCritical {
		t.Fatalf("severity override failed")
	}
}

func TestApplyPolicy_NoPolicy(t *testing.T) {
	findings := []models.Finding{
		{RuleID: "COST_EC2_OVERSIZED"},
	}

	result := ApplyPolicy(findings, "cost", nil)

	if len(result) != 1 {
		t.Fatalf("nil policy should not modify findings")
	}
}

func TestApplyPolicy_MinSeverityNotSet(t *testing.T) {
	// No min_severity → all findings pass through regardless of severity.
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"cost": {Enabled: true},
		},
	}
	findings := []models.Finding{
		{RuleID: "A", Severity: models.SeverityCritical},
		{RuleID: "B", Severity: models.SeverityHigh},
		{RuleID: "C", Severity: models.SeverityMedium},
		{RuleID: "D", Severity: models.SeverityLow},
	}
	result := ApplyPolicy(findings, "cost", cfg)
	if len(result) != 4 {
		t.Fatalf("want 4 findings (no min_severity), got %d", len(result))
	}
}

func TestApplyPolicy_MinSeverityHigh(t *testing.T) {
	// min_severity=HIGH → MEDIUM and LOW are dropped; CRITICAL and HIGH survive.
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"cost": {Enabled: true, MinSeverity: "HIGH"},
		},
	}
	findings := []models.Finding{
		{RuleID: "A", Severity: models.SeverityCritical},
		{RuleID: "B", Severity: models.SeverityHigh},
		{RuleID: "C", Severity: models.SeverityMedium},
		{RuleID: "D", Severity: models.SeverityLow},
	}
	result := ApplyPolicy(findings, "cost", cfg)
	if len(result) != 2 {
		t.Fatalf("want 2 findings (CRITICAL + HIGH), got %d", len(result))
	}
	for _, f := range result {
		if f.Severity != models.SeverityCritical && f.Severity != models.SeverityHigh {
			t.Errorf("unexpected severity %q survived min_severity=HIGH filter", f.Severity)
		}
	}
}

func TestApplyPolicy_MinSeverityCritical(t *testing.T) {
	// min_severity=CRITICAL → only CRITICAL findings survive.
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"security": {Enabled: true, MinSeverity: "CRITICAL"},
		},
	}
	findings := []models.Finding{
		{RuleID: "A", Severity: models.SeverityCritical},
		{RuleID: "B", Severity: models.SeverityHigh},
		{RuleID: "C", Severity: models.SeverityMedium},
	}
	result := ApplyPolicy(findings, "security", cfg)
	if len(result) != 1 {
		t.Fatalf("want 1 finding (CRITICAL only), got %d", len(result))
	}
	if result[0].Severity != models.SeverityCritical {
		t.Errorf("want CRITICAL, got %q", result[0].Severity)
	}
}

func TestApplyPolicy_SeverityOverrideThenMinSeverity(t *testing.T) {
	// Severity override elevates MEDIUM → CRITICAL; min_severity=HIGH then keeps it.
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"cost": {Enabled: true, MinSeverity: "HIGH"},
		},
		Rules: map[string]RuleConfig{
			"COST_EC2_OVERSIZED": {Severity: "CRITICAL"},
		},
	}
	findings := []models.Finding{
		{RuleID: "COST_EC2_OVERSIZED", Severity: models.SeverityMedium},
		{RuleID: "COST_EIP_UNATTACHED", Severity: models.SeverityLow},
	}
	result := ApplyPolicy(findings, "cost", cfg)
	// COST_EC2_OVERSIZED: overridden to CRITICAL (weight 4) ≥ HIGH (weight 3) → kept.
	// COST_EIP_UNATTACHED: stays LOW (weight 1) < HIGH (weight 3) → dropped.
	if len(result) != 1 {
		t.Fatalf("want 1 finding after override+min_severity filter, got %d", len(result))
	}
	if result[0].RuleID != "COST_EC2_OVERSIZED" {
		t.Errorf("wrong finding kept: %q", result[0].RuleID)
	}
	if result[0].Severity != models.SeverityCritical {
		t.Errorf("want CRITICAL after override, got %q", result[0].Severity)
	}
}

func TestApplyPolicy_MinSeverityInvalidValue(t *testing.T) {
	// An unrecognised min_severity string is ignored safely; no filtering is applied.
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"cost": {Enabled: true, MinSeverity: "BOGUS"},
		},
	}
	findings := []models.Finding{
		{RuleID: "A", Severity: models.SeverityLow},
		{RuleID: "B", Severity: models.SeverityMedium},
	}
	result := ApplyPolicy(findings, "cost", cfg)
	if len(result) != 2 {
		t.Fatalf("invalid min_severity must not filter findings; got %d", len(result))
	}
}

func TestApplyPolicy_DomainAbsentStaysEnabled(t *testing.T) {
	cfg := &PolicyConfig{
		Domains: map[string]DomainConfig{
			"security": {Enabled: false},
		},
	}
	findings := []models.Finding{{RuleID: "COMP_S3_ENCRYPTION", Severity: models.SeverityHigh}}
	if got := ApplyPolicy(findings, DomainCompliance, cfg); len(got) != 1 {
		t.Fatalf("compliance is not configured and must stay enabled; got %d findings", len(got))
	}
}

func TestApplyPolicy_DoesNotMutateInput(t *testing.T) {
	cfg := &PolicyConfig{
		Rules: map[string]RuleConfig{
			"COST_EC2_OVERSIZED": {Severity: "critical"},
		},
	}
	findings := []models.Finding{{RuleID: "COST_EC2_OVERSIZED", Severity: models.SeverityMedium}}
	_ = ApplyPolicy(findings, DomainCost, cfg)
	if findings[0].Severity != models.SeverityMedium {
		t.Errorf("input finding severity changed to %q", findings[0].Severity)
	}
}
