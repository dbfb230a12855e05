package findings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// Format is an export rendering of a finding list.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is wrapped by Export for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// CSVColumns is the fixed CSV header, in column order.
var CSVColumns = []string{
	"id",
	"kind",
	"severity",
	"title",
	"description",
	"resource",
	"resource_type",
	"rule_id",
	"recommendation",
	"framework",
	"control",
	"category",
	"cve",
	"potential_savings",
	"tenant_id",
	"analysis_id",
	"processed_at",
}

// Export renders findings in the requested format. It has no side effects.
func Export(findings []models.ProcessedFinding, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return exportJSON(findings)
	case FormatCSV:
		return exportCSV(findings), nil
	case FormatMarkdown:
		return exportMarkdown(findings), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

func exportJSON(findings []models.ProcessedFinding) (string, error) {
	if findings == nil {
		findings = []models.ProcessedFinding{}
	}
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}
	return string(data), nil
}

// exportCSV quotes every field and joins lines with "\n" without a trailing
// newline.
func exportCSV(findings []models.ProcessedFinding) string {
	lines := make([]string, 0, len(findings)+1)
	lines = append(lines, csvLine(CSVColumns))
	for _, f := range findings {
		lines = append(lines, csvLine([]string{
			f.ID,
			string(f.Kind),
			string(f.Severity),
			f.Title,
			f.Description,
			f.Resource,
			f.ResourceType,
			f.RuleID,
			f.Recommendation,
			f.Framework,
			f.Control,
			f.Category,
			f.CVE,
			strconv.FormatFloat(f.PotentialSavings, 'f', 2, 64),
			f.TenantID,
			f.AnalysisID,
			formatTime(f.ProcessedAt),
		}))
	}
	return strings.Join(lines, "\n")
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, v := range fields {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// exportMarkdown writes a severity summary table followed by one section per
// finding in input order.
func exportMarkdown(findings []models.ProcessedFinding) string {
	var b strings.Builder
	s := Summarize(findings)

	b.WriteString("# Findings Report\n\n")
	b.WriteString("| Severity | Count |\n")
	b.WriteString("|----------|-------|\n")
	for _, sev := range models.Severities() {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, s.BySeverity[sev])
	}
	fmt.Fprintf(&b, "| **Total** | %d |\n", s.Total)

	for i, f := range findings {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, f.Title)
		fmt.Fprintf(&b, "- **Severity:** %s\n", f.Severity)
		fmt.Fprintf(&b, "- **Kind:** %s\n", f.Kind)
		fmt.Fprintf(&b, "- **Resource:** `%s`\n", f.Resource)
		fmt.Fprintf(&b, "- **Rule:** %s\n", f.RuleID)
		if f.Framework != "" {
			fmt.Fprintf(&b, "- **Framework:** %s %s\n", f.Framework, f.Control)
		}
		if f.Category != "" {
			fmt.Fprintf(&b, "- **Category:** %s\n", f.Category)
		}
		if f.CVE != "" {
			fmt.Fprintf(&b, "- **CVE:** %s\n", f.CVE)
		}
		if f.PotentialSavings > 0 {
			fmt.Fprintf(&b, "- **Potential savings:** $%.2f/mo\n", f.PotentialSavings)
		}
		fmt.Fprintf(&b, "\n%s\n\n", f.Description)
		fmt.Fprintf(&b, "**Recommendation:** %s\n", f.Recommendation)
	}
	return b.String()
}
