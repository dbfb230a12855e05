package rules

import (
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// Predicate reports whether a resource change violates a rule. The whole
// plan is passed so rules can look at sibling resources (for example a
// public access block declared next to a bucket). Predicates must be pure:
// no I/O, no mutation of rc or p.
type Predicate func(rc *models.ResourceChange, p *models.Plan) bool

// Rule is a single deterministic check over one resource change.
// Rules are plain data plus functions; the registry drives evaluation.
type Rule struct {
	// ID is the unique, stable identifier (e.g. "COMP_S3_ENCRYPTION").
	ID string

	// Title is the short human-readable name used as the finding title.
	Title string

	// Description explains the violation and becomes the finding description.
	Description string

	Severity models.Severity

	// Kind overrides the engine's finding kind when set (cost rules that are
	// tagging hygiene report best_practice).
	Kind models.Kind

	// ResourceTypes lists the Terraform types the rule applies to. Empty or
	// a "*" entry matches every type.
	ResourceTypes []string

	Predicate Predicate

	// Recommendation is the static remediation text. Recommend, when set,
	// builds a resource-specific one instead.
	Recommendation string
	Recommend      func(rc *models.ResourceChange) string

	// Evidence adds rule-specific facts to the finding evidence.
	Evidence func(rc *models.ResourceChange) map[string]any

	// Compliance mapping.
	Framework string
	Control   string

	// Security and cost classification.
	Category string
	CVE      string

	// Savings estimates the monthly USD saving of fixing the violation.
	Savings func(rc *models.ResourceChange) float64
}

// AppliesTo reports whether the rule targets resources of type t.
func (r Rule) AppliesTo(t string) bool {
	if len(r.ResourceTypes) == 0 {
		return true
	}
	for _, rt := range r.ResourceTypes {
		if rt == "*" || rt == t {
			return true
		}
	}
	return false
}

// EvalOptions controls a single registry evaluation.
type EvalOptions struct {
	// Engine names the caller in rule evaluation errors.
	Engine string

	// Kind is stamped on every finding unless the rule overrides it.
	Kind models.Kind

	// Filter, when set, skips rules for which it returns false.
	Filter func(Rule) bool
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// Get returns the rule with the given ID.
	Get(id string) (Rule, bool)

	// Evaluate runs every applicable rule against every resource of p.
	Evaluate(p *models.Plan, opts EvalOptions, onError func(*models.RuleEvaluationError)) []models.Finding
}
