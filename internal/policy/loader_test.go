package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicy_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shiftleft-policy.yaml")

	content := `
version: 1
domains:
  cost:
    enabled: true
rules:
  COST_EC2_OVERSIZED:
    enabled: false
    severity: HIGH
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Version != 1 {
		t.Fatalf("expected version 1")
	}

	if !cfg.Domains["cost"].Enabled {
		t.Fatalf("expected cost domain enabled")
	}

	rc := cfg.Rules["COST_EC2_OVERSIZED"]

	if rc.Enabled == nil || *rc.Enabled != false {
		t.Fatalf("expected COST_EC2_OVERSIZED enabled=false")
	}

	if rc.Severity != "HIGH" {
		t.Fatalf("expected severity HIGH")
	}
}

func TestLoadPolicy_InvalidVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shiftleft-policy.yaml")

	content := `
version: 2
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadPolicy(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLoadPolicy_FileNotFound(t *testing.T) {
	_, err := LoadPolicy("nonexistent.yaml")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParsePolicy_InitializesMaps(t *testing.T) {
	cfg, err := ParsePolicy([]byte("version: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Domains == nil || cfg.Rules == nil || cfg.Enforcement == nil {
		t.Fatalf("expected non-nil maps, got %+v", cfg)
	}
}

func TestParsePolicy_EnforcementAndMinSeverity(t *testing.T) {
	content := `
version: 1
domains:
  security:
    enabled: true
    min_severity: medium
enforcement:
  security:
    fail_on_severity: high
`
	cfg, err := ParsePolicy([]byte(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Domains["security"].MinSeverity; got != "medium" {
		t.Errorf("min_severity: got %q, want medium", got)
	}
	if got := cfg.Enforcement["security"].FailOnSeverity; got != "high" {
		t.Errorf("fail_on_severity: got %q, want high", got)
	}
}

func TestParsePolicy_MalformedYAML(t *testing.T) {
	if _, err := ParsePolicy([]byte("version: [1")); err == nil {
		t.Fatal("expected decode error")
	}
}
