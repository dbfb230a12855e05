package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/config"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/store"
)

// DoctorResult is the structured output of sl doctor. It can be serialised to
// JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	Config struct {
		Path  string `json:"path,omitempty"`
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	} `json:"config"`

	Store struct {
		Backend   string `json:"backend,omitempty"`
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"store"`

	Policy struct {
		Path    string   `json:"path,omitempty"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	Rules struct {
		Total int `json:"total"`
	} `json:"rules"`

	OverallHealthy bool `json:"overall_healthy"`
}

// storeOpener opens the configured result store. Tests replace it.
type storeOpener func(ctx context.Context, cfg config.StoreConfig) (analysis.Store, error)

func defaultStoreOpener(ctx context.Context, cfg config.StoreConfig) (analysis.Store, error) {
	return store.New(ctx, cfg, zerolog.Nop())
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			result, err := runDoctor(cmd.Context(), opts, defaultStoreOpener, cmd.OutOrStdout(), format)
			if err != nil {
				// Rendering failure; let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, opts *rootOptions, open storeOpener, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, opts, open)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, opts *rootOptions, open storeOpener) DoctorResult {
	var result DoctorResult
	result.Rules.Total = len(allRuleIDs())

	// Config: load → validate. Everything below depends on it.
	loader := config.NewLoader(opts.configPath)
	result.Config.Path = loader.ConfigPath()
	cfg, err := loader.Load()
	if err != nil {
		result.Config.Error = err.Error()
		return result
	}
	result.Config.Valid = true

	// Store: open → list one record.
	result.Store.Backend = cfg.Store.Backend
	st, err := open(ctx, cfg.Store)
	if err != nil {
		result.Store.Error = err.Error()
	} else {
		if _, err := st.List(ctx, analysis.ListFilter{Limit: 1}); err != nil {
			result.Store.Error = err.Error()
		} else {
			result.Store.Reachable = true
		}
		if c, ok := st.(io.Closer); ok {
			c.Close()
		}
	}

	// Policy: resolve → load → validate (file is optional).
	path := resolvePolicyPath(opts.policyPath, cfg.PolicyPath)
	if path != "" {
		result.Policy.Path = path
		result.Policy.Present = true
		pol, loadErr := policy.LoadPolicy(path)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else if errs := policy.Validate(pol, allRuleIDs()); len(errs) > 0 {
			for _, e := range errs {
				result.Policy.Errors = append(result.Policy.Errors, e.Error())
			}
		} else {
			result.Policy.Valid = true
		}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.Store.Reachable &&
		(!result.Policy.Present || result.Policy.Valid)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	path := result.Config.Path
	if path == "" {
		path = "defaults + environment"
	}
	if result.Config.Valid {
		doctorPrint(w, "Loaded", "OK", path)
	} else {
		doctorPrint(w, "Loaded", "FAIL", result.Config.Error)
		doctorPrint(w, "Store", "FAIL", "skipped")
		doctorPrint(w, "Policy", "FAIL", "skipped")
		return
	}

	fmt.Fprintf(w, "\nStore (backend: %s):\n", result.Store.Backend)
	if result.Store.Reachable {
		doctorPrint(w, "Reachable", "OK", "")
	} else {
		doctorPrint(w, "Reachable", "FAIL", result.Store.Error)
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, "Policy file", "Not found (optional)", "")
	} else {
		doctorPrint(w, "Policy file", "YES", result.Policy.Path)
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}

	fmt.Fprintln(w, "\nRules:")
	doctorPrint(w, "Catalog", "OK", fmt.Sprintf("%d rules", result.Rules.Total))
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
