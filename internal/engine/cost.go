package engine

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/pricing"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rulepacks/cost"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/rules"
)

// effortByCategory is the fixed implementation-effort hint attached to each
// recommendation.
var effortByCategory = map[string]string{
	models.CostCategoryStorage:  "low",
	models.CostCategoryCompute:  "medium",
	models.CostCategoryNetwork:  "medium",
	models.CostCategoryDatabase: "high",
	models.CostCategoryOther:    "low",
}

// CostEngine estimates the monthly cost of a plan and runs the cost
// optimisation catalog over it.
type CostEngine struct {
	base
}

// NewCostEngine constructs a CostEngine over registry. policyCfg may be nil.
func NewCostEngine(registry rules.RuleRegistry, policyCfg *policy.PolicyConfig, logger zerolog.Logger) *CostEngine {
	return &CostEngine{base: newBase(DomainCost, models.KindCost, registry, policyCfg, logger)}
}

// NewDefaultCostEngine constructs a CostEngine over the built-in cost catalog.
func NewDefaultCostEngine(policyCfg *policy.PolicyConfig, logger zerolog.Logger) *CostEngine {
	return NewCostEngine(rules.NewRegistry(cost.New()...), policyCfg, logger)
}

// Analyze implements Analyzer.
//
// The score is 100 minus potential savings as a percentage of the projected
// monthly cost, floored at 0, and 100 when nothing in the plan is priced.
// Category scores use the same ratio within each category.
func (e *CostEngine) Analyze(ctx context.Context, p *models.Plan, opts Options) (*Result, error) {
	findings, ruleErrors, err := e.evaluate(ctx, p, opts, nil)
	if err != nil {
		return nil, err
	}

	estimate := Estimate(p)

	savingsByCategory := make(map[string]float64)
	var totalSavings float64
	for _, f := range findings {
		savingsByCategory[f.Category] += f.PotentialSavings
		totalSavings += f.PotentialSavings
	}
	estimate.PotentialSavings = roundCents(totalSavings)

	dims := make(map[string]float64, len(models.CostCategories()))
	for _, c := range models.CostCategories() {
		dims[c] = savingsScore(savingsByCategory[c], estimate.ByCategory[c])
	}

	return &Result{
		Domain:          e.domain,
		Score:           savingsScore(totalSavings, estimate.TotalMonthlyCost),
		Findings:        findings,
		DimensionScores: dims,
		Cost:            estimate,
		Recommendations: Recommendations(findings),
		RuleErrors:      ruleErrors,
	}, nil
}

// Estimate prices every resource change in p. The after state gives the
// projected cost and the before state the current cost; resource types
// with no price contribute nothing. Every cost category is present in
// ByCategory.
func Estimate(p *models.Plan) *models.CostAnalysis {
	ca := &models.CostAnalysis{
		ByCategory:     make(map[string]float64, len(models.CostCategories())),
		ByResourceType: make(map[string]float64),
		Resources:      []models.ResourceCost{},
	}
	for _, c := range models.CostCategories() {
		ca.ByCategory[c] = 0
	}
	if p == nil {
		return ca
	}

	for i := range p.ResourceChanges {
		rc := &p.ResourceChanges[i]
		after := pricing.Price(rc.Type, rc.Change.After)
		before := pricing.Price(rc.Type, rc.Change.Before)
		if after.Monthly == 0 && before.Monthly == 0 {
			continue
		}

		quote := after
		if rc.Change.After == nil {
			quote = before
		}
		category := pricing.Category(rc.Type)

		ca.Resources = append(ca.Resources, models.ResourceCost{
			Address:             rc.Address,
			Type:                rc.Type,
			Category:            category,
			PricingKey:          quote.PricingKey,
			Defaulted:           quote.Defaulted,
			MonthlyCost:         after.Monthly,
			PreviousMonthlyCost: before.Monthly,
			MonthlyDelta:        roundCents(after.Monthly - before.Monthly),
		})

		ca.TotalMonthlyCost += after.Monthly
		ca.PreviousMonthlyCost += before.Monthly
		ca.ByCategory[category] += after.Monthly
		ca.ByResourceType[rc.Type] += after.Monthly
	}

	ca.TotalMonthlyCost = roundCents(ca.TotalMonthlyCost)
	ca.PreviousMonthlyCost = roundCents(ca.PreviousMonthlyCost)
	ca.MonthlyDelta = roundCents(ca.TotalMonthlyCost - ca.PreviousMonthlyCost)
	for k, v := range ca.ByCategory {
		ca.ByCategory[k] = roundCents(v)
	}
	for k, v := range ca.ByResourceType {
		ca.ByResourceType[k] = roundCents(v)
	}
	return ca
}

// Recommendations groups findings by cost category, sums their savings and
// sorts the groups by savings descending (category name breaks ties).
// Rule IDs and resources keep first-seen order within a group.
func Recommendations(findings []models.Finding) []models.CostRecommendation {
	index := make(map[string]int)
	var recs []models.CostRecommendation

	for _, f := range findings {
		category := f.Category
		if category == "" {
			category = models.CostCategoryOther
		}
		pos, ok := index[category]
		if !ok {
			recs = append(recs, models.CostRecommendation{
				Category: category,
				Effort:   Effort(category),
			})
			pos = len(recs) - 1
			index[category] = pos
		}
		r := &recs[pos]
		r.PotentialSavings += f.PotentialSavings
		r.FindingCount++
		r.RuleIDs = appendUnique(r.RuleIDs, f.RuleID)
		r.Resources = appendUnique(r.Resources, f.Resource)
	}

	for i := range recs {
		recs[i].PotentialSavings = roundCents(recs[i].PotentialSavings)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].PotentialSavings != recs[j].PotentialSavings {
			return recs[i].PotentialSavings > recs[j].PotentialSavings
		}
		return recs[i].Category < recs[j].Category
	})
	return recs
}

// Effort returns the fixed effort hint for a cost category.
func Effort(category string) string {
	if e, ok := effortByCategory[category]; ok {
		return e
	}
	return "low"
}

func savingsScore(savings, cost float64) float64 {
	if cost <= 0 {
		return 100
	}
	return rules.Round1(math.Max(0, 100-savings/cost*100))
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
