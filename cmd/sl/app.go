package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/config"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/engine"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/findings"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/logging"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/render"
	compliancepack "github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/compliance"
	costpack "github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/cost"
	secpack "github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/security"
)

// defaultPolicyFile is picked up from the working directory when neither
// --policy nor policy_path is set.
const defaultPolicyFile = "shiftleft.yaml"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	policyPath string
	logLevel   string
}

// app is the wired dependency set for one command invocation.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	policy     *policy.PolicyConfig
	compliance *engine.ComplianceEngine
	security   *engine.SecurityEngine
	cost       *engine.CostEngine
}

// loadApp reads configuration and policy and builds the engines. Log output
// goes to stderr so stdout stays parseable.
func loadApp(opts *rootOptions, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(logging.Config{Level: level, Format: cfg.Log.Format, Output: stderr})
	if err != nil {
		return nil, err
	}

	pol, err := loadPolicy(resolvePolicyPath(opts.policyPath, cfg.PolicyPath))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        logger,
		policy:     pol,
		compliance: engine.NewDefaultComplianceEngine(pol, logger),
		security:   engine.NewDefaultSecurityEngine(pol, logger),
		cost:       engine.NewDefaultCostEngine(pol, logger),
	}, nil
}

func (a *app) catalogs() []render.Catalog {
	return []render.Catalog{a.compliance, a.security, a.cost}
}

func (a *app) orchestrator(opts ...analysis.Option) *analysis.Orchestrator {
	opts = append([]analysis.Option{analysis.WithLogger(a.log)}, opts...)
	return analysis.New(a.compliance, a.security, a.cost, findings.NewProcessor(a.log), opts...)
}

// resolvePolicyPath picks the flag, then the config value, then
// ./shiftleft.yaml when it exists. "" means no policy.
func resolvePolicyPath(flag, configured string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	if _, err := os.Stat(defaultPolicyFile); err == nil {
		return defaultPolicyFile
	}
	return ""
}

// loadPolicy loads and validates the policy at path. An empty path yields a
// nil policy (built-in defaults).
func loadPolicy(path string) (*policy.PolicyConfig, error) {
	if path == "" {
		return nil, nil
	}
	pol, err := policy.LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	if errs := policy.Validate(pol, allRuleIDs()); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy %q: %w", path, errors.Join(errs...))
	}
	return pol, nil
}

// allRuleIDs returns the union of all known rule IDs from every rule pack.
func allRuleIDs() []string {
	var ids []string
	for _, r := range compliancepack.New() {
		ids = append(ids, r.ID)
	}
	for _, r := range secpack.New() {
		ids = append(ids, r.ID)
	}
	for _, r := range costpack.New() {
		ids = append(ids, r.ID)
	}
	return ids
}
