package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// TableOptions controls which columns RenderTable renders and how severity is coloured.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeSavings adds a SAVINGS/MO column when any finding has PotentialSavings > 0.
	IncludeSavings bool

	// IncludeKind adds a KIND column.
	IncludeKind bool
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed
	case models.SeverityHigh:
		return ansiRed
	case models.SeverityMedium:
		return ansiYellow
	case models.SeverityLow:
		return ansiBlue
	default:
		return ""
	}
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	s := string(sev)
	code := severityColor(sev)
	if !colored || code == "" {
		return s
	}
	return code + s + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

func hasSavings(findings []models.ProcessedFinding) bool {
	for _, f := range findings {
		if f.PotentialSavings > 0 {
			return true
		}
	}
	return false
}

// severityCell returns the severity padded to width characters.
// ANSI codes wrap only the text; the padding stays plain so later columns
// line up on terminals without ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	code := severityColor(sev)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for address and id columns,
// keeping the tail: the end of a module path is the informative part.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return "…" + string(runes[len(runes)-max+1:])
}

// RenderTable writes a formatted findings table to w in the order given.
// Columns are dynamically selected based on opts; the separator line width is
// derived from the header row so all rows align correctly.
//
// Column order:
//
//	RESOURCE  SEVERITY  [KIND]  RULE  TITLE  [SAVINGS/MO]
func RenderTable(w io.Writer, findings []models.ProcessedFinding, opts TableOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	showSavings := opts.IncludeSavings && hasSavings(findings)

	// Fixed column display widths.
	const (
		wResource = 40
		wSeverity = 10
		wKind     = 13
		wRule     = 32
		wTitle    = 50
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wSeverity, "SEVERITY"))
	if opts.IncludeKind {
		hb.WriteString(fmt.Sprintf("  %-*s", wKind, "KIND"))
	}
	hb.WriteString(fmt.Sprintf("  %-*s", wRule, "RULE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wTitle, "TITLE"))
	if showSavings {
		hb.WriteString("  SAVINGS/MO")
	}
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, f := range findings {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(f.Resource, wResource)))
		rb.WriteString("  " + severityCell(f.Severity, wSeverity, opts.Colored))
		if opts.IncludeKind {
			rb.WriteString(fmt.Sprintf("  %-*s", wKind, string(f.Kind)))
		}
		rb.WriteString(fmt.Sprintf("  %-*s", wRule, truncateField(f.RuleID, wRule)))
		rb.WriteString(fmt.Sprintf("  %-*s", wTitle, ShortenMessage(f.Title, wTitle)))
		if showSavings && f.PotentialSavings > 0 {
			rb.WriteString(fmt.Sprintf("  $%.2f", f.PotentialSavings))
		}
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}
