package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedVersion is returned by LoadPolicy for any version other than 1.
var ErrUnsupportedVersion = errors.New("unsupported policy version")

// LoadPolicy reads and decodes the policy file at path. Semantic checks
// beyond the version live in Validate.
func LoadPolicy(path string) (*PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %q: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a policy document.
func ParsePolicy(data []byte) (*PolicyConfig, error) {
	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cfg.Version)
	}

	if cfg.Domains == nil {
		cfg.Domains = make(map[string]DomainConfig)
	}

	if cfg.Rules == nil {
		cfg.Rules = make(map[string]RuleConfig)
	}

	if cfg.Enforcement == nil {
		cfg.Enforcement = make(map[string]EnforcementConfig)
	}

	return &cfg, nil
}
