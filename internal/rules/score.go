package rules

import (
	"math"
	"sort"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// PenaltyTable maps a severity to the score points one finding costs.
type PenaltyTable map[models.Severity]float64

// CompliancePenalties is the penalty table for compliance scoring.
var CompliancePenalties = PenaltyTable{
	models.SeverityCritical: 20,
	models.SeverityHigh:     10,
	models.SeverityMedium:   5,
	models.SeverityLow:      2,
}

// SecurityPenalties is the penalty table for security scoring.
var SecurityPenalties = PenaltyTable{
	models.SeverityCritical: 25,
	models.SeverityHigh:     15,
	models.SeverityMedium:   8,
	models.SeverityLow:      3,
}

// maxScore is the score of a plan with no findings.
const maxScore = 100.0

// Penalty sums the table penalties of findings.
func (t PenaltyTable) Penalty(findings []models.Finding) float64 {
	var total float64
	for _, f := range findings {
		total += t[f.Severity]
	}
	return total
}

// ScoreFromFindings turns findings into a 0–100 score.
//
// With normalize set the total penalty is divided by resourceCount, giving
// the overall rate-style score; a plan with zero resources scores 100.
// Without normalize the raw penalty sum is subtracted, which is how the
// per-framework and per-category dimension scores are computed.
func ScoreFromFindings(findings []models.Finding, table PenaltyTable, resourceCount int, normalize bool) float64 {
	penalty := table.Penalty(findings)
	if normalize {
		if resourceCount <= 0 {
			return maxScore
		}
		penalty /= float64(resourceCount)
	}
	return Round1(math.Max(0, maxScore-penalty))
}

// DimensionScores scores every dimension in dims (plus any other dimension
// found on a finding) without resource normalisation. key extracts the
// dimension of a finding; findings with an empty key are ignored.
func DimensionScores(findings []models.Finding, table PenaltyTable, key func(models.Finding) string, dims []string) map[string]float64 {
	grouped := make(map[string][]models.Finding)
	for _, d := range dims {
		grouped[d] = nil
	}
	for _, f := range findings {
		k := key(f)
		if k == "" {
			continue
		}
		grouped[k] = append(grouped[k], f)
	}

	scores := make(map[string]float64, len(grouped))
	for d, fs := range grouped {
		scores[d] = ScoreFromFindings(fs, table, 0, false)
	}
	return scores
}

// SortedKeys returns the keys of a score map in ascending order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
