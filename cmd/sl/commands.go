package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/findings"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/metrics"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/output"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/render"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/server"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/store"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/version"
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "sl",
		Short:         "shiftleft: compliance, security and cost analysis of Terraform plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ~/.config/shiftleft/config.yaml when present)")
	root.PersistentFlags().StringVar(&opts.policyPath, "policy", "", "Policy file (default: policy_path from config, then ./shiftleft.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newRulesCmd(opts))
	root.AddCommand(newExplainCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

type analyzeFlags struct {
	planPath     string
	planFormat   string
	frameworks   []string
	threshold    string
	noCompliance bool
	noSecurity   bool
	noCost       bool
	tenant       string
	repo         string
	branch       string
	commit       string
	report       string
	output       string
	color        bool
	save         bool
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a Terraform plan (terraform show -json output)",
		Example: `  terraform show -json tfplan > plan.json
  sl analyze --plan plan.json
  sl analyze --plan plan.json --frameworks SOC2 --severity-threshold high --report csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runAnalyze(cmd, a, f)
		},
	}

	cmd.Flags().StringVar(&f.planPath, "plan", "", `Plan file, or "-" for stdin`)
	cmd.Flags().StringVar(&f.planFormat, "format", string(plan.FormatJSON), "Plan format: json or binary")
	cmd.Flags().StringSliceVar(&f.frameworks, "frameworks", nil, "Compliance frameworks to evaluate (default: config scan.frameworks, then all)")
	cmd.Flags().StringVar(&f.threshold, "severity-threshold", "", "Drop findings below this severity from the output")
	cmd.Flags().BoolVar(&f.noCompliance, "no-compliance", false, "Skip compliance checks")
	cmd.Flags().BoolVar(&f.noSecurity, "no-security", false, "Skip security checks")
	cmd.Flags().BoolVar(&f.noCost, "no-cost", false, "Skip cost analysis")
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "Tenant id recorded on the analysis")
	cmd.Flags().StringVar(&f.repo, "repo", "", "Source repository URL")
	cmd.Flags().StringVar(&f.branch, "branch", "", "Source branch")
	cmd.Flags().StringVar(&f.commit, "commit", "", "Source commit SHA")
	cmd.Flags().StringVar(&f.report, "report", "table", "Output format: table, json, csv or markdown")
	cmd.Flags().StringVar(&f.output, "output", "", "Write the full JSON result to this file path (in addition to stdout output)")
	cmd.Flags().BoolVar(&f.color, "color", false, "Colour severities in table output")
	cmd.Flags().BoolVar(&f.save, "save", false, "Persist the result to the configured store")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, f analyzeFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch f.report {
	case "table", "json", "csv", "markdown":
	default:
		return fmt.Errorf("unknown report format %q; valid: table, json, csv, markdown", f.report)
	}

	data, err := readPlan(cmd.InOrStdin(), f.planPath)
	if err != nil {
		return err
	}

	req := analysis.Request{
		PlanData:   data,
		PlanFormat: plan.Format(f.planFormat),
		TenantID:   f.tenant,
		ScanOptions: analysis.ScanOptions{
			Frameworks:        f.frameworks,
			SeverityThreshold: f.threshold,
		},
	}
	if len(req.ScanOptions.Frameworks) == 0 {
		req.ScanOptions.Frameworks = a.cfg.Scan.Frameworks
	}
	if req.ScanOptions.SeverityThreshold == "" {
		req.ScanOptions.SeverityThreshold = a.cfg.Scan.SeverityThreshold
	}
	if f.noCompliance {
		req.ScanOptions.IncludeComplianceChecks = analysis.Bool(false)
	}
	if f.noSecurity {
		req.ScanOptions.IncludeSecurityChecks = analysis.Bool(false)
	}
	if f.noCost {
		req.ScanOptions.IncludeCostAnalysis = analysis.Bool(false)
	}
	if f.repo != "" || f.branch != "" || f.commit != "" {
		req.Source = &models.SourceControl{RepositoryURL: f.repo, Branch: f.branch, Commit: f.commit}
	}

	var orchOpts []analysis.Option
	if f.save {
		st, err := store.New(ctx, a.cfg.Store, a.log)
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		if c, ok := st.(io.Closer); ok {
			defer c.Close()
		}
		orchOpts = append(orchOpts, analysis.WithStore(st))
	}

	result, err := a.orchestrator(orchOpts...).PerformAnalysis(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if f.output != "" {
		if err := writeResultToFile(f.output, result); err != nil {
			return err
		}
	}

	switch f.report {
	case "json":
		if err := printJSON(out, result); err != nil {
			return err
		}
	case "csv", "markdown":
		body, err := findings.Export(result.Findings, findings.Format(f.report))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, body)
	default:
		output.RenderSummary(out, result, f.color)
		fmt.Fprintln(out)
		output.RenderTable(out, result.Findings, output.TableOptions{
			Colored:        f.color,
			IncludeSavings: true,
			IncludeKind:    true,
		})
	}

	if result.Status == models.StatusFailed {
		return fmt.Errorf("analysis %s failed", result.ID)
	}
	if failed := enforcementFailures(result.Findings, a.policy); len(failed) > 0 {
		return fmt.Errorf("policy enforcement failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

// enforcementFailures lists the domains whose fail_on_severity threshold is
// met by the analysis findings.
func enforcementFailures(processed []models.ProcessedFinding, pol *policy.PolicyConfig) []string {
	raw := make([]models.Finding, len(processed))
	for i, f := range processed {
		raw[i] = f.Finding
	}

	var failed []string
	checks := []struct {
		domain string
		kinds  []models.Kind
	}{
		{policy.DomainCompliance, []models.Kind{models.KindCompliance}},
		{policy.DomainSecurity, []models.Kind{models.KindSecurity}},
		{policy.DomainCost, []models.Kind{models.KindCost, models.KindBestPractice}},
	}
	for _, c := range checks {
		if policy.ShouldFail(c.domain, policy.FindingsForKind(raw, c.kinds...), pol) {
			failed = append(failed, c.domain)
		}
	}
	return failed
}

func readPlan(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read plan from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read plan file %q: %w", path, err)
	}
	return string(data), nil
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResultToFile serialises result as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeResultToFile(path string, result *models.AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result file %q: %w", path, err)
	}
	return nil
}

func newRulesCmd(opts *rootOptions) *cobra.Command {
	var domain, format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the built-in rule catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			infos := render.DescribeAll(a.catalogs(), strings.ToLower(domain))
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			printRules(cmd.OutOrStdout(), infos)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Only list rules of this domain: compliance, security or cost")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func printRules(w io.Writer, infos []render.RuleInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No rules.")
		return
	}
	header := fmt.Sprintf("%-34s  %-10s  %-8s  %s", "RULE", "DOMAIN", "SEVERITY", "TITLE")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)+30))
	for _, r := range infos {
		fmt.Fprintf(w, "%-34s  %-10s  %-8s  %s\n", r.ID, r.Domain, r.Severity, r.Title)
	}
}

func newExplainCmd(opts *rootOptions) *cobra.Command {
	var analysisPath, format string

	cmd := &cobra.Command{
		Use:   "explain RULE_ID",
		Short: "Explain a rule and, optionally, where it fired in a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			id := args[0]
			info := render.FindRule(a.catalogs(), id)

			if format == "json" {
				if err := render.WriteExplainJSON(cmd.OutOrStdout(), info, id); err != nil {
					return err
				}
				if info == nil {
					return fmt.Errorf("no rule found with id %s", id)
				}
				return nil
			}
			if info == nil {
				return fmt.Errorf("no rule found with id %s", id)
			}

			var fs []models.ProcessedFinding
			if analysisPath != "" {
				result, err := readResultFile(analysisPath)
				if err != nil {
					return err
				}
				fs = result.Findings
				if fs == nil {
					fs = []models.ProcessedFinding{}
				}
			}
			render.RenderRuleExplanation(cmd.OutOrStdout(), *info, fs)
			return nil
		},
	}
	cmd.Flags().StringVar(&analysisPath, "analysis", "", "JSON result written by sl analyze --output")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func readResultFile(path string) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis file %q: %w", path, err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode analysis file %q: %w", path, err)
	}
	return &result, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			st, err := store.New(cmd.Context(), a.cfg.Store, a.log)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			if c, ok := st.(io.Closer); ok {
				defer c.Close()
			}

			mc := metrics.NewCollector(nil)
			orch := a.orchestrator(analysis.WithStore(st), analysis.WithMetrics(mc))

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			api := server.NewWebAPI(server.Config{
				Addr:            addr,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				Dependencies: server.Dependencies{
					Analyses: orch,
					Catalogs: a.catalogs(),
					Metrics:  mc,
					Logger:   a.log,
				},
			})
			if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
