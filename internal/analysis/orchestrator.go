// Package analysis sequences a full plan analysis: parse, run the
// compliance, security and cost engines, process their findings and
// assemble the AnalysisResult handed back to callers.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/engine"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/findings"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/metrics"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/plan"
)

// FailureRuleID is the rule id of the synthetic finding appended to a
// failed analysis.
const FailureRuleID = "ANALYSIS_FAILURE"

// Orchestrator runs analyses. Engines and processor are shared read-only
// collaborators, so one Orchestrator serves concurrent requests.
type Orchestrator struct {
	compliance engine.Analyzer
	security   engine.Analyzer
	cost       engine.Analyzer
	processor  *findings.Processor

	store   Store
	log     zerolog.Logger
	metrics *metrics.Collector
	now     func() time.Time
	newID   func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore persists every finished result to s.
func WithStore(s Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithLogger sets the orchestrator logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics records run metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithClock replaces the time source used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the analysis id generator (uuid.NewString).
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

// New returns an Orchestrator over the three engines and the processor.
func New(complianceEngine, securityEngine, costEngine engine.Analyzer, processor *findings.Processor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		compliance: complianceEngine,
		security:   securityEngine,
		cost:       costEngine,
		processor:  processor,
		log:        zerolog.Nop(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PerformAnalysis runs one analysis. Only malformed input is returned as an
// error (*models.ValidationError or *models.ParseError); any later failure
// yields a result with status failed and a synthetic ANALYSIS_FAILURE
// finding, alongside whatever was computed before the failure.
func (o *Orchestrator) PerformAnalysis(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	start := o.now()

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	p, err := plan.Parse(req.PlanData, req.format())
	if err != nil {
		return nil, err
	}

	result := models.NewAnalysisResult(o.newID(), start.UTC())
	result.Metadata.PlanFormat = string(req.format())
	result.Metadata.FormatVersion = p.FormatVersion
	result.Metadata.TerraformVersion = p.TerraformVersion
	result.Metadata.TenantID = req.TenantID
	result.Metadata.Source = req.Source
	result.Metadata.Frameworks = req.ScanOptions.frameworks()
	result.Metadata.SeverityFilter = req.ScanOptions.threshold()

	log := o.log.With().
		Str("analysis_id", result.ID).
		Str("tenant_id", req.TenantID).
		Logger()
	log.Info().Int("resources", len(p.ResourceChanges)).Msg("analysis started")

	if err := o.run(ctx, p, req, result); err != nil {
		log.Error().Err(err).Msg("analysis failed")
		o.fail(result, err, req.TenantID)
	}

	elapsed := o.now().Sub(start)
	result.Metadata.DurationMillis = elapsed.Milliseconds()
	o.metrics.RecordAnalysis(result.Status, elapsed)
	o.metrics.RecordFindings(result.Findings)

	log.Info().
		Str("status", string(result.Status)).
		Int("findings", len(result.Findings)).
		Int64("duration_ms", result.Metadata.DurationMillis).
		Msg("analysis finished")

	if o.store != nil {
		if err := o.store.Store(context.WithoutCancel(ctx), result); err != nil {
			log.Error().Err(err).Msg("store analysis result")
		}
	}
	return result, nil
}

// run performs every stage after parsing. Scores and findings from engines
// that finished are kept even when another engine failed.
func (o *Orchestrator) run(ctx context.Context, p *models.Plan, req Request, result *models.AnalysisResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &models.AnalysisFailure{Stage: "assemble", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	tallyResources(p, result)

	results, runErr := o.runEngines(ctx, p, req)
	var raw []models.Finding
	for _, r := range results {
		if r == nil {
			continue
		}
		o.metrics.RecordRuleErrors(r.Domain, r.RuleErrors)
		applyEngineResult(result, r)
		raw = append(raw, r.Findings...)
	}

	tc := findings.TenantContext{TenantID: req.TenantID, AnalysisID: result.ID}
	if runErr != nil {
		// Keep the findings of the engines that finished.
		if processed, err := o.processor.Process(raw, tc); err == nil {
			result.Findings = findings.AtOrAbove(processed, req.ScanOptions.threshold())
		}
		return runErr
	}

	processed, err := o.processor.Process(raw, tc)
	if err != nil {
		return &models.AnalysisFailure{Stage: "findings", Err: err}
	}

	result.Findings = findings.AtOrAbove(processed, req.ScanOptions.threshold())
	result.Summary.TotalFindings = len(result.Findings)

	var estimate *models.CostAnalysis
	if results[2] != nil {
		estimate = results[2].Cost
	}
	result.Resources = projectResources(p, result.Findings, estimate)

	return result.Complete()
}

// runEngines evaluates the enabled engines concurrently. Every engine runs
// to completion even when another fails, so finished results survive a
// partial failure. The returned array is always ordered compliance,
// security, cost; disabled or failed engines leave a nil slot.
func (o *Orchestrator) runEngines(ctx context.Context, p *models.Plan, req Request) ([3]*engine.Result, error) {
	var results [3]*engine.Result
	slots := [3]struct {
		analyzer engine.Analyzer
		enabled  bool
	}{
		{o.compliance, req.ScanOptions.complianceEnabled()},
		{o.security, req.ScanOptions.securityEnabled()},
		{o.cost, req.ScanOptions.costEnabled()},
	}
	opts := engine.Options{
		Frameworks: req.ScanOptions.frameworks(),
		Policy:     req.Policy,
	}

	var g errgroup.Group
	for i, s := range slots {
		i, s := i, s
		if !s.enabled || s.analyzer == nil {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &models.AnalysisFailure{Stage: s.analyzer.Domain(), Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			res, err := s.analyzer.Analyze(ctx, p, opts)
			if err != nil {
				return &models.AnalysisFailure{Stage: s.analyzer.Domain(), Err: err}
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func applyEngineResult(result *models.AnalysisResult, r *engine.Result) {
	s := &result.Summary
	switch r.Domain {
	case engine.DomainCompliance:
		s.ComplianceScore = r.Score
		s.FrameworkScores = r.DimensionScores
	case engine.DomainSecurity:
		s.SecurityScore = r.Score
		s.SecurityCategoryScores = r.DimensionScores
		s.RiskLevel = r.RiskLevel
	case engine.DomainCost:
		s.CostScore = r.Score
		s.CostCategoryScores = r.DimensionScores
		result.Cost = r.Cost
		result.Recommendations = r.Recommendations
		if r.Cost != nil {
			s.EstimatedMonthlyCost = r.Cost.TotalMonthlyCost
			s.MonthlyCostDelta = r.Cost.MonthlyDelta
			s.PotentialMonthlySavings = r.Cost.PotentialSavings
		}
	}
}

func tallyResources(p *models.Plan, result *models.AnalysisResult) {
	result.Summary.TotalResources = len(p.ResourceChanges)
	for i := range p.ResourceChanges {
		result.Summary.ResourcesByChange[p.ResourceChanges[i].ChangeType()]++
	}
	result.Summary.ComplexityScore = plan.ComplexityScore(p)
}

// projectResources builds one status row per resource change in plan order.
// Per-resource compliance and security verdicts are not derived from the
// dimension scores and stay "unknown".
func projectResources(p *models.Plan, fs []models.ProcessedFinding, estimate *models.CostAnalysis) []models.ResourceStatus {
	costs := make(map[string]float64)
	if estimate != nil {
		for _, rc := range estimate.Resources {
			costs[rc.Address] = rc.MonthlyCost
		}
	}
	counts := make(map[string]int)
	for _, f := range fs {
		counts[f.Resource]++
	}

	out := make([]models.ResourceStatus, 0, len(p.ResourceChanges))
	for i := range p.ResourceChanges {
		rc := &p.ResourceChanges[i]
		out = append(out, models.ResourceStatus{
			Address:              rc.Address,
			Type:                 rc.Type,
			Provider:             rc.ProviderName,
			Module:               rc.ModuleAddress,
			ChangeType:           rc.ChangeType(),
			ComplianceStatus:     models.StatusUnknown,
			SecurityStatus:       models.StatusUnknown,
			EstimatedMonthlyCost: costs[rc.Address],
			FindingCount:         counts[rc.Address],
		})
	}
	return out
}

// fail marks result failed and appends the synthetic failure finding.
func (o *Orchestrator) fail(result *models.AnalysisResult, err error, tenantID string) {
	stage := "analysis"
	var af *models.AnalysisFailure
	if errors.As(err, &af) {
		stage = af.Stage
	}

	result.Findings = append(result.Findings, models.ProcessedFinding{
		Finding: models.Finding{
			ID:             models.FindingID(FailureRuleID, result.ID),
			Kind:           models.KindCompliance,
			Severity:       models.SeverityHigh,
			Title:          "Analysis failed",
			Description:    err.Error(),
			Resource:       "analysis/" + result.ID,
			RuleID:         FailureRuleID,
			Recommendation: "Retry the analysis. If it keeps failing, check the service logs for this analysis id.",
			Evidence: map[string]any{
				"stage":          stage,
				"error":          err.Error(),
				"severity_score": models.SeverityHigh.Weight(),
			},
		},
		ProcessedAt: o.now().UTC(),
		TenantID:    tenantID,
		AnalysisID:  result.ID,
	})
	result.Summary.TotalFindings = len(result.Findings)

	if ferr := result.Fail(); ferr != nil {
		// The result already reached a terminal state; keep it.
		o.log.Warn().Err(ferr).Str("analysis_id", result.ID).Msg("cannot mark analysis failed")
	}
}
