// Package render provides presentation helpers for the rule catalog: the
// descriptor served by the API and the `sl explain` output. It is a pure
// rendering package with no evaluation or scoring logic.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// Catalog is a domain's rule list. The engines implement it.
type Catalog interface {
	Domain() string
	Rules() []rules.Rule
}

// RuleInfo is the serialisable description of one catalog rule.
type RuleInfo struct {
	ID             string          `json:"id"`
	Domain         string          `json:"domain"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Severity       models.Severity `json:"severity"`
	Kind           models.Kind     `json:"kind,omitempty"`
	ResourceTypes  []string        `json:"resource_types,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`
	Framework      string          `json:"framework,omitempty"`
	Control        string          `json:"control,omitempty"`
	Category       string          `json:"category,omitempty"`
	CVE            string          `json:"cve,omitempty"`
}

// Describe converts a rule into its descriptor.
func Describe(domain string, r rules.Rule) RuleInfo {
	return RuleInfo{
		ID:             r.ID,
		Domain:         domain,
		Title:          r.Title,
		Description:    r.Description,
		Severity:       r.Severity,
		Kind:           r.Kind,
		ResourceTypes:  r.ResourceTypes,
		Recommendation: r.Recommendation,
		Framework:      r.Framework,
		Control:        r.Control,
		Category:       r.Category,
		CVE:            r.CVE,
	}
}

// DescribeAll lists every rule of the catalogs, optionally restricted to one
// domain, in catalog then registration order.
func DescribeAll(catalogs []Catalog, domain string) []RuleInfo {
	infos := []RuleInfo{}
	for _, c := range catalogs {
		if domain != "" && c.Domain() != domain {
			continue
		}
		for _, r := range c.Rules() {
			infos = append(infos, Describe(c.Domain(), r))
		}
	}
	return infos
}

// FindRule returns the descriptor of the rule with id (case-insensitive), or
// nil when no catalog has it.
func FindRule(catalogs []Catalog, id string) *RuleInfo {
	for _, c := range catalogs {
		for _, r := range c.Rules() {
			if strings.EqualFold(r.ID, id) {
				info := Describe(c.Domain(), r)
				return &info
			}
		}
	}
	return nil
}

// RenderRuleExplanation writes a structured breakdown of one rule to w.
// findings is an analysis finding set; only findings produced by this rule
// are listed, as sorted resource addresses.
//
// Example output:
//
//	RULE SEC_RDS_PUBLIC (critical)
//	Title: RDS instance publicly accessible
//	Domain: security  Category: network_security
//	Applies to: aws_db_instance, aws_rds_cluster_instance
//
//	The database is assigned a public endpoint ...
//
//	Recommendation: Set publicly_accessible = false ...
//
//	Findings (1):
//	  - aws_db_instance.db
func RenderRuleExplanation(w io.Writer, info RuleInfo, findings []models.ProcessedFinding) {
	fmt.Fprintf(w, "RULE %s (%s)\n", info.ID, info.Severity)
	fmt.Fprintf(w, "Title: %s\n", info.Title)

	line := "Domain: " + info.Domain
	if info.Framework != "" {
		line += fmt.Sprintf("  Framework: %s %s", info.Framework, info.Control)
	}
	if info.Category != "" {
		line += "  Category: " + info.Category
	}
	if info.CVE != "" {
		line += "  CVE: " + info.CVE
	}
	fmt.Fprintln(w, strings.TrimRight(line, " "))

	applies := "all resource types"
	if len(info.ResourceTypes) > 0 {
		applies = strings.Join(info.ResourceTypes, ", ")
	}
	fmt.Fprintf(w, "Applies to: %s\n", applies)

	if info.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, info.Description)
	}
	fmt.Fprintln(w)
	if info.Recommendation != "" {
		fmt.Fprintf(w, "Recommendation: %s\n", info.Recommendation)
	} else {
		fmt.Fprintln(w, "Recommendation: resource-specific, see each finding.")
	}

	if findings == nil {
		return
	}

	var resources []string
	for _, f := range findings {
		if f.RuleID == info.ID {
			resources = append(resources, f.Resource)
		}
	}
	sort.Strings(resources)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings (%d):\n", len(resources))
	for _, r := range resources {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

// WriteExplainJSON writes the rule descriptor as indented JSON to w.
//
// When info is non-nil, the output is:
//
//	{"rule": { ...descriptor fields... }}
//
// When info is nil (unknown rule id), the output is:
//
//	{"error": "No rule found with id X"}
func WriteExplainJSON(w io.Writer, info *RuleInfo, id string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if info == nil {
		return enc.Encode(map[string]string{
			"error": fmt.Sprintf("No rule found with id %s", id),
		})
	}
	return enc.Encode(map[string]any{
		"rule": info,
	})
}
