package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

func always(*models.ResourceChange, *models.Plan) bool { return true }

func testPlan() *models.Plan {
	return &models.Plan{
		FormatVersion:    "1.2",
		TerraformVersion: "1.7.5",
		ResourceChanges: []models.ResourceChange{
			{
				Address: "aws_s3_bucket.a",
				Type:    "aws_s3_bucket",
				Name:    "a",
				Change: models.Change{
					Actions: []models.Action{models.ActionCreate},
					After:   map[string]any{"bucket": "a"},
				},
			},
			{
				Address: "aws_instance.web",
				Type:    "aws_instance",
				Name:    "web",
				Change: models.Change{
					Actions: []models.Action{models.ActionDelete, models.ActionCreate},
					Before:  map[string]any{"instance_type": "t2.micro"},
					After:   map[string]any{"instance_type": "t3.micro"},
				},
			},
			{
				Address: "aws_instance.gone",
				Type:    "aws_instance",
				Name:    "gone",
				Change: models.Change{
					Actions: []models.Action{models.ActionDelete},
					Before:  map[string]any{"instance_type": "t3.micro"},
				},
			},
		},
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	reg := NewDefaultRuleRegistry()
	reg.Register(Rule{ID: "R1", Predicate: always})

	defer func() {
		if recover() == nil {
			t.Error("registering a duplicate ID must panic")
		}
	}()
	reg.Register(Rule{ID: "R1", Predicate: always})
}

func TestRegister_NilPredicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering a rule without predicate must panic")
		}
	}()
	NewDefaultRuleRegistry().Register(Rule{ID: "R1"})
}

func TestAllAndGet(t *testing.T) {
	reg := NewRegistry(
		Rule{ID: "B", Predicate: always},
		Rule{ID: "A", Predicate: always},
	)

	all := reg.All()
	if len(all) != 2 || all[0].ID != "B" || all[1].ID != "A" {
		t.Fatalf("All() = %v; want registration order [B A]", all)
	}
	all[0].ID = "mutated"
	if reg.All()[0].ID != "B" {
		t.Error("All() must return a copy")
	}

	if r, ok := reg.Get("A"); !ok || r.ID != "A" {
		t.Errorf("Get(A) = %v, %v", r, ok)
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Get(missing) must report false")
	}
}

func TestAppliesTo(t *testing.T) {
	tests := []struct {
		types []string
		in    string
		want  bool
	}{
		{nil, "aws_instance", true},
		{[]string{"*"}, "aws_instance", true},
		{[]string{"aws_s3_bucket"}, "aws_instance", false},
		{[]string{"aws_s3_bucket", "aws_instance"}, "aws_instance", true},
	}
	for _, tt := range tests {
		if got := (Rule{ResourceTypes: tt.types}).AppliesTo(tt.in); got != tt.want {
			t.Errorf("AppliesTo(%v, %q) = %v; want %v", tt.types, tt.in, got, tt.want)
		}
	}
}

func TestEvaluate_OrderAndShape(t *testing.T) {
	reg := NewRegistry(
		Rule{
			ID:             "R_ANY",
			Title:          "any",
			Severity:       models.SeverityLow,
			Predicate:      always,
			Recommendation: "static",
		},
		Rule{
			ID:            "R_EC2",
			Title:         "ec2",
			Severity:      models.SeverityHigh,
			ResourceTypes: []string{"aws_instance"},
			Category:      "compute",
			Predicate:     always,
			Recommend:     func(rc *models.ResourceChange) string { return "fix " + rc.Address },
			Evidence:      func(*models.ResourceChange) map[string]any { return map[string]any{"extra": 1} },
			Savings:       func(*models.ResourceChange) float64 { return 10.456 },
		},
	)

	got := reg.Evaluate(testPlan(), EvalOptions{Engine: "cost", Kind: models.KindCost}, nil)

	want := []string{
		"R_ANY:aws_s3_bucket.a",
		"R_ANY:aws_instance.web",
		"R_EC2:aws_instance.web",
	}
	if len(got) != len(want) {
		t.Fatalf("want %d findings, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("findings[%d].ID = %q; want %q", i, got[i].ID, id)
		}
	}

	f := got[2]
	if f.Kind != models.KindCost || f.Severity != models.SeverityHigh {
		t.Errorf("kind/severity = %s/%s; want cost/high", f.Kind, f.Severity)
	}
	if f.Recommendation != "fix aws_instance.web" {
		t.Errorf("Recommendation = %q", f.Recommendation)
	}
	if f.PotentialSavings != 10.46 {
		t.Errorf("PotentialSavings = %v; want 10.46", f.PotentialSavings)
	}
	if f.Evidence["extra"] != 1 || f.Evidence["resource_type"] != "aws_instance" {
		t.Errorf("Evidence = %v", f.Evidence)
	}
	actions, ok := f.Evidence["actions"].([]string)
	if !ok || len(actions) != 2 {
		t.Errorf("Evidence[actions] = %v; want [delete create]", f.Evidence["actions"])
	}
	if got[0].Recommendation != "static" {
		t.Errorf("static Recommendation = %q", got[0].Recommendation)
	}
}

func TestEvaluate_SkipsPureDeletions(t *testing.T) {
	var seen []string
	reg := NewRegistry(Rule{
		ID:        "R_SEEN",
		Severity:  models.SeverityLow,
		Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
			seen = append(seen, rc.Address)
			return true
		},
	})

	got := reg.Evaluate(testPlan(), EvalOptions{Kind: models.KindSecurity}, nil)

	if len(seen) != 2 || seen[0] != "aws_s3_bucket.a" || seen[1] != "aws_instance.web" {
		t.Errorf("predicate saw %v; want the deleted aws_instance.gone skipped", seen)
	}
	for _, f := range got {
		if f.Resource == "aws_instance.gone" {
			t.Errorf("deleted resource produced finding %s", f.ID)
		}
	}
}

func TestEvaluate_KindOverrideAndFilter(t *testing.T) {
	reg := NewRegistry(
		Rule{ID: "KEEP", Kind: models.KindBestPractice, ResourceTypes: []string{"aws_s3_bucket"}, Predicate: always},
		Rule{ID: "DROP", ResourceTypes: []string{"aws_s3_bucket"}, Predicate: always},
	)
	got := reg.Evaluate(testPlan(), EvalOptions{
		Kind:   models.KindCost,
		Filter: func(r Rule) bool { return r.ID != "DROP" },
	}, nil)

	if len(got) != 1 || got[0].RuleID != "KEEP" {
		t.Fatalf("findings = %v; want only KEEP", got)
	}
	if got[0].Kind != models.KindBestPractice {
		t.Errorf("kind = %q; want best_practice", got[0].Kind)
	}
}

func TestEvaluate_RecoversPanics(t *testing.T) {
	reg := NewRegistry(
		Rule{
			ID:            "PANIC_PREDICATE",
			ResourceTypes: []string{"aws_instance"},
			Predicate: func(rc *models.ResourceChange, _ *models.Plan) bool {
				var m map[string]int
				m["x"]++ // nil map write
				return true
			},
		},
		Rule{
			ID:            "PANIC_SAVINGS",
			ResourceTypes: []string{"aws_s3_bucket"},
			Predicate:     always,
			Savings:       func(*models.ResourceChange) float64 { panic("no price") },
		},
		Rule{ID: "OK", ResourceTypes: []string{"aws_instance"}, Predicate: always},
	)

	var errs []*models.RuleEvaluationError
	got := reg.Evaluate(testPlan(), EvalOptions{Engine: "security"}, func(e *models.RuleEvaluationError) {
		errs = append(errs, e)
	})

	if len(got) != 1 || got[0].RuleID != "OK" {
		t.Errorf("findings = %v; want only OK", got)
	}
	if len(errs) != 2 {
		t.Fatalf("want 2 rule errors, got %d", len(errs))
	}
	if errs[0].RuleID != "PANIC_SAVINGS" || errs[0].Address != "aws_s3_bucket.a" || errs[0].Engine != "security" {
		t.Errorf("errs[0] = %+v", errs[0])
	}
	if errs[1].RuleID != "PANIC_PREDICATE" || errs[1].Address != "aws_instance.web" {
		t.Errorf("errs[1] = %+v", errs[1])
	}
}

func TestEvaluate_NilPlan(t *testing.T) {
	reg := NewRegistry(Rule{ID: "R", Predicate: always})
	if got := reg.Evaluate(nil, EvalOptions{}, nil); got != nil {
		t.Errorf("nil plan: got %v; want nil", got)
	}
}
