package engine

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

var prodTags = map[string]any{
	"Environment": "prod",
	"Owner":       "platform",
	"CostCenter":  "cc-42",
}

func approx(a, b float64) bool { return math.Abs(a-b) < 0.005 }

func TestEstimate(t *testing.T) {
	removed := models.ResourceChange{
		Address: "aws_instance.old",
		Type:    "aws_instance",
		Name:    "old",
		Change: models.Change{
			Actions: []models.Action{models.ActionDelete},
			Before:  map[string]any{"instance_type": "t3.micro"},
		},
	}
	p := newPlan(
		created("aws_instance", "web", map[string]any{"instance_type": "m5.large"}),
		created("aws_ebs_volume", "data", map[string]any{"type": "gp2", "size": 100}),
		created("aws_iam_role", "app", map[string]any{"name": "app"}),
		created("aws_instance", "odd", map[string]any{"instance_type": "x9.mega"}),
		removed,
	)

	ca := Estimate(p)

	// 70.08 + 10.00 + 50.00 (default)
	if !approx(ca.TotalMonthlyCost, 130.08) {
		t.Errorf("TotalMonthlyCost = %.2f; want 130.08", ca.TotalMonthlyCost)
	}
	if !approx(ca.PreviousMonthlyCost, 7.59) {
		t.Errorf("PreviousMonthlyCost = %.2f; want 7.59", ca.PreviousMonthlyCost)
	}
	if !approx(ca.MonthlyDelta, 122.49) {
		t.Errorf("MonthlyDelta = %.2f; want 122.49", ca.MonthlyDelta)
	}
	if !approx(ca.ByCategory[models.CostCategoryCompute], 120.08) {
		t.Errorf("compute = %.2f; want 120.08", ca.ByCategory[models.CostCategoryCompute])
	}
	if !approx(ca.ByCategory[models.CostCategoryStorage], 10.00) {
		t.Errorf("storage = %.2f; want 10.00", ca.ByCategory[models.CostCategoryStorage])
	}
	for _, c := range models.CostCategories() {
		if _, ok := ca.ByCategory[c]; !ok {
			t.Errorf("ByCategory missing %q", c)
		}
	}
	// The IAM role has no price and is left out.
	if len(ca.Resources) != 4 {
		t.Fatalf("want 4 priced resources, got %d", len(ca.Resources))
	}

	byAddr := map[string]models.ResourceCost{}
	for _, r := range ca.Resources {
		byAddr[r.Address] = r
	}
	if odd := byAddr["aws_instance.odd"]; !odd.Defaulted || odd.PricingKey != "x9.mega" {
		t.Errorf("unknown SKU: got %+v; want defaulted x9.mega", odd)
	}
	if old := byAddr["aws_instance.old"]; !approx(old.MonthlyDelta, -7.59) || old.PricingKey != "t3.micro" {
		t.Errorf("deleted instance: got %+v; want delta -7.59 keyed t3.micro", old)
	}
}

func TestEstimate_NilPlan(t *testing.T) {
	ca := Estimate(nil)
	if ca.TotalMonthlyCost != 0 || len(ca.ByCategory) != len(models.CostCategories()) {
		t.Errorf("nil plan: got %+v", ca)
	}
}

func TestCostEngine_ScoreFromSavingsRatio(t *testing.T) {
	e := NewDefaultCostEngine(nil, zerolog.Nop())
	p := newPlan(
		created("aws_instance", "web", map[string]any{"instance_type": "m5.large", "tags": prodTags}),
		created("aws_ebs_volume", "data", map[string]any{"type": "gp2", "size": 100, "tags": prodTags}),
	)

	res, err := e.Analyze(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].RuleID != "COST_EBS_GP2_LEGACY" {
		t.Fatalf("findings = %v; want [COST_EBS_GP2_LEGACY]", ruleIDs(res.Findings))
	}
	if !approx(res.Findings[0].PotentialSavings, 2.00) {
		t.Errorf("savings = %.2f; want 2.00", res.Findings[0].PotentialSavings)
	}
	// 100 - 2.00/80.08*100
	if res.Score != 97.5 {
		t.Errorf("score = %.1f; want 97.5", res.Score)
	}
	if res.DimensionScores[models.CostCategoryStorage] != 80.0 {
		t.Errorf("storage score = %.1f; want 80.0", res.DimensionScores[models.CostCategoryStorage])
	}
	if res.DimensionScores[models.CostCategoryCompute] != 100 {
		t.Errorf("compute score = %.1f; want 100", res.DimensionScores[models.CostCategoryCompute])
	}
	if !approx(res.Cost.PotentialSavings, 2.00) {
		t.Errorf("Cost.PotentialSavings = %.2f; want 2.00", res.Cost.PotentialSavings)
	}
}

func TestCostEngine_NothingPricedScores100(t *testing.T) {
	e := NewDefaultCostEngine(nil, zerolog.Nop())
	p := newPlan(created("aws_s3_bucket", "b", map[string]any{"bucket": "b"}))

	res, err := e.Analyze(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 100 {
		t.Errorf("score = %.1f; want 100", res.Score)
	}
}

func TestRecommendations(t *testing.T) {
	findings := []models.Finding{
		{RuleID: "COST_EBS_GP2_LEGACY", Resource: "aws_ebs_volume.a", Category: models.CostCategoryStorage, PotentialSavings: 2},
		{RuleID: "COST_EC2_OVERSIZED", Resource: "aws_instance.a", Category: models.CostCategoryCompute, PotentialSavings: 140},
		{RuleID: "COST_EBS_GP2_LEGACY", Resource: "aws_ebs_volume.b", Category: models.CostCategoryStorage, PotentialSavings: 3},
		{RuleID: "COST_MISSING_COST_TAGS", Resource: "aws_instance.a", Category: models.CostCategoryOther},
		{RuleID: "COST_RDS_MULTI_AZ_NON_PROD", Resource: "aws_db_instance.a", Category: models.CostCategoryDatabase, PotentialSavings: 62.05},
	}

	recs := Recommendations(findings)

	wantOrder := []string{
		models.CostCategoryCompute,
		models.CostCategoryDatabase,
		models.CostCategoryStorage,
		models.CostCategoryOther,
	}
	if len(recs) != len(wantOrder) {
		t.Fatalf("want %d recommendations, got %d", len(wantOrder), len(recs))
	}
	for i, c := range wantOrder {
		if recs[i].Category != c {
			t.Errorf("recs[%d].Category = %q; want %q", i, recs[i].Category, c)
		}
	}

	storage := recs[2]
	if !approx(storage.PotentialSavings, 5) || storage.FindingCount != 2 {
		t.Errorf("storage: savings %.2f count %d; want 5.00 and 2", storage.PotentialSavings, storage.FindingCount)
	}
	if len(storage.RuleIDs) != 1 || len(storage.Resources) != 2 {
		t.Errorf("storage: rule ids %v resources %v", storage.RuleIDs, storage.Resources)
	}
	if storage.Effort != "low" || recs[0].Effort != "medium" || recs[1].Effort != "high" {
		t.Errorf("efforts = %s/%s/%s; want medium/high/low", recs[0].Effort, recs[1].Effort, storage.Effort)
	}
}

func TestEffort(t *testing.T) {
	tests := map[string]string{
		models.CostCategoryStorage:  "low",
		models.CostCategoryCompute:  "medium",
		models.CostCategoryNetwork:  "medium",
		models.CostCategoryDatabase: "high",
		models.CostCategoryOther:    "low",
		"unknown":                   "low",
	}
	for category, want := range tests {
		if got := Effort(category); got != want {
			t.Errorf("Effort(%q) = %q; want %q", category, got, want)
		}
	}
}
