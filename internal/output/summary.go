package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/findings"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// RenderSummary writes the run header shown above the findings table:
// status, resource counts, the three domain scores with their dimensions,
// cost totals and the per-severity finding breakdown.
func RenderSummary(w io.Writer, result *models.AnalysisResult, colored bool) {
	s := result.Summary

	fmt.Fprintf(w, "Analysis:  %s (%s)\n", result.ID, result.Status)
	if src := result.Metadata.Source; src != nil && src.RepositoryURL != "" {
		ref := src.Branch
		if src.Commit != "" {
			ref = strings.TrimSpace(ref + " @ " + shortCommit(src.Commit))
		}
		fmt.Fprintf(w, "Source:    %s %s\n", src.RepositoryURL, ref)
	}
	fmt.Fprintf(w, "Resources: %d (create %d, update %d, delete %d, no-op %d)\n",
		s.TotalResources,
		s.ResourcesByChange[models.ChangeCreate],
		s.ResourcesByChange[models.ChangeUpdate],
		s.ResourcesByChange[models.ChangeDelete],
		s.ResourcesByChange[models.ChangeNoOp],
	)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Scores")
	fmt.Fprintf(w, "  %-12s  %5.1f%s\n", "Compliance", s.ComplianceScore, dimensions(s.FrameworkScores))
	risk := ""
	if s.RiskLevel != "" {
		risk = fmt.Sprintf("  risk: %s", s.RiskLevel)
	}
	fmt.Fprintf(w, "  %-12s  %5.1f%s%s\n", "Security", s.SecurityScore, risk, dimensions(s.SecurityCategoryScores))
	fmt.Fprintf(w, "  %-12s  %5.1f%s\n", "Cost", s.CostScore, dimensions(s.CostCategoryScores))
	fmt.Fprintf(w, "  %-12s  %5.1f\n", "Complexity", s.ComplexityScore)
	fmt.Fprintln(w)

	if result.Cost != nil {
		fmt.Fprintf(w, "Est. Monthly Cost:     $%.2f (delta %+.2f)\n", s.EstimatedMonthlyCost, s.MonthlyCostDelta)
		fmt.Fprintf(w, "Potential Savings:     $%.2f/mo\n", s.PotentialMonthlySavings)
		fmt.Fprintln(w)
	}

	sum := findings.Summarize(result.Findings)
	fmt.Fprintf(w, "Total Findings:        %d\n", sum.Total)
	fmt.Fprintln(w, "Severity Breakdown")
	for _, sev := range models.Severities() {
		upper := strings.ToUpper(string(sev))
		label := fmt.Sprintf("%-10s", upper)
		if colored {
			label = severityColor(sev) + upper + ansiReset + strings.Repeat(" ", 10-len(upper))
		}
		fmt.Fprintf(w, "  %s  %d\n", label, sum.BySeverity[sev])
	}
}

// dimensions renders a score map as " [A 90.0, B 75.5]" in key order, or ""
// when empty.
func dimensions(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %.1f", k, scores[k]))
	}
	return "  [" + strings.Join(parts, ", ") + "]"
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
