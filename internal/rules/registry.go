package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// DefaultRuleRegistry is a simple, ordered, in-memory registry.
// Rules are evaluated in registration order.
// Register panics on duplicate rule IDs to catch wiring mistakes at startup.
type DefaultRuleRegistry struct {
	rules []Rule
	index map[string]int
}

// NewDefaultRuleRegistry returns an empty registry ready for rule registration.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{
		index: make(map[string]int),
	}
}

// NewRegistry returns a registry holding rs in order.
func NewRegistry(rs ...Rule) *DefaultRuleRegistry {
	reg := NewDefaultRuleRegistry()
	for _, r := range rs {
		reg.Register(r)
	}
	return reg
}

// Register adds rule to the registry. Panics if the same ID is registered
// twice or the rule has no predicate.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	if _, exists := r.index[rule.ID]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID))
	}
	if rule.Predicate == nil {
		panic(fmt.Sprintf("rule %q has no predicate", rule.ID))
	}
	r.index[rule.ID] = len(r.rules)
	r.rules = append(r.rules, rule)
}

// All returns all registered rules in registration order.
func (r *DefaultRuleRegistry) All() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Get returns the rule registered under id.
func (r *DefaultRuleRegistry) Get(id string) (Rule, bool) {
	i, ok := r.index[id]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// Evaluate walks resources in plan order and, for each, the applicable rules
// in registration order, so output order is fully determined by the input.
//
// Resources without an after state (pure deletions) are skipped: nothing is
// left to check once the plan is applied. A panic inside a rule function is
// recovered, reported through onError and treated as "no finding" for that
// (rule, resource) pair only.
func (r *DefaultRuleRegistry) Evaluate(p *models.Plan, opts EvalOptions, onError func(*models.RuleEvaluationError)) []models.Finding {
	if p == nil {
		return nil
	}
	var findings []models.Finding
	for i := range p.ResourceChanges {
		rc := &p.ResourceChanges[i]
		if rc.Change.After == nil {
			continue
		}
		for _, rule := range r.rules {
			if !rule.AppliesTo(rc.Type) {
				continue
			}
			if opts.Filter != nil && !opts.Filter(rule) {
				continue
			}
			f, ok, err := evaluateOne(rule, rc, p, opts)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func evaluateOne(rule Rule, rc *models.ResourceChange, p *models.Plan, opts EvalOptions) (f models.Finding, ok bool, err *models.RuleEvaluationError) {
	defer func() {
		if rec := recover(); rec != nil {
			f, ok = models.Finding{}, false
			err = &models.RuleEvaluationError{
				Engine:  opts.Engine,
				RuleID:  rule.ID,
				Address: rc.Address,
				Cause:   rec,
			}
		}
	}()

	if !rule.Predicate(rc, p) {
		return models.Finding{}, false, nil
	}
	return buildFinding(rule, rc, opts.Kind), true, nil
}

func buildFinding(rule Rule, rc *models.ResourceChange, kind models.Kind) models.Finding {
	if rule.Kind != "" {
		kind = rule.Kind
	}

	recommendation := rule.Recommendation
	if rule.Recommend != nil {
		recommendation = rule.Recommend(rc)
	}

	actions := make([]string, len(rc.Change.Actions))
	for i, a := range rc.Change.Actions {
		actions[i] = string(a)
	}
	evidence := map[string]any{
		"resource_type": rc.Type,
		"actions":       actions,
	}
	if rule.Evidence != nil {
		for k, v := range rule.Evidence(rc) {
			evidence[k] = v
		}
	}

	f := models.Finding{
		ID:             models.FindingID(rule.ID, rc.Address),
		Kind:           kind,
		Severity:       rule.Severity,
		Title:          rule.Title,
		Description:    rule.Description,
		Resource:       rc.Address,
		ResourceType:   rc.Type,
		RuleID:         rule.ID,
		Recommendation: recommendation,
		Evidence:       evidence,
		Framework:      rule.Framework,
		Control:        rule.Control,
		Category:       rule.Category,
		CVE:            rule.CVE,
	}
	if rule.Savings != nil {
		f.PotentialSavings = roundCents(rule.Savings(rc))
	}
	return f
}
