package plan

import (
	"math"
	"sort"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// Complexity weights. A plan touching many providers is harder to review
// than one touching many resources of the same kind.
const (
	weightResource     = 1.0
	weightResourceType = 2.0
	weightProvider     = 3.0
	weightModule       = 1.5
	bonusDestructive   = 10.0
	bonusSensitive     = 5.0
	maxComplexityScore = 100.0
)

// ResourceFilter selects resource changes by attribute. Empty fields match
// everything; all set fields must match.
type ResourceFilter struct {
	Type     string
	Action   models.Action
	Provider string
	Module   string
}

// ResourceTypes returns the distinct resource types in p, sorted.
func ResourceTypes(p *models.Plan) []string {
	return distinct(p, func(rc *models.ResourceChange) string { return rc.Type })
}

// Providers returns the distinct provider identifiers in p, sorted.
func Providers(p *models.Plan) []string {
	return distinct(p, func(rc *models.ResourceChange) string { return rc.ProviderName })
}

// Modules returns the distinct non-root module addresses in p, sorted.
// Resources in the root module have no module address and are skipped.
func Modules(p *models.Plan) []string {
	return distinct(p, func(rc *models.ResourceChange) string { return rc.ModuleAddress })
}

// FilterResources returns the resource changes matching every set field of f,
// in plan order.
func FilterResources(p *models.Plan, f ResourceFilter) []models.ResourceChange {
	if p == nil {
		return nil
	}
	var out []models.ResourceChange
	for i := range p.ResourceChanges {
		rc := &p.ResourceChanges[i]
		if f.Type != "" && rc.Type != f.Type {
			continue
		}
		if f.Action != "" && !rc.HasAction(f.Action) {
			continue
		}
		if f.Provider != "" && rc.ProviderName != f.Provider {
			continue
		}
		if f.Module != "" && rc.ModuleAddress != f.Module {
			continue
		}
		out = append(out, *rc)
	}
	return out
}

// ComplexityScore rates how hard a plan is to review on a 0–100 scale:
// a weighted sum of resource, type, provider and module counts plus fixed
// bonuses for destructive and sensitive changes, clamped and rounded to one
// decimal.
func ComplexityScore(p *models.Plan) float64 {
	if p == nil {
		return 0
	}
	score := float64(len(p.ResourceChanges))*weightResource +
		float64(len(ResourceTypes(p)))*weightResourceType +
		float64(len(Providers(p)))*weightProvider +
		float64(len(Modules(p)))*weightModule

	var destructive, sensitive bool
	for i := range p.ResourceChanges {
		rc := &p.ResourceChanges[i]
		destructive = destructive || rc.IsDestructive()
		sensitive = sensitive || rc.HasSensitiveValues()
	}
	if destructive {
		score += bonusDestructive
	}
	if sensitive {
		score += bonusSensitive
	}

	score = math.Max(0, math.Min(maxComplexityScore, score))
	return math.Round(score*10) / 10
}

func distinct(p *models.Plan, key func(*models.ResourceChange) string) []string {
	if p == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for i := range p.ResourceChanges {
		k := key(&p.ResourceChanges[i])
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Companions returns the resources of type companionType that attach to
// owner. Terraform plans rarely carry resolved ids for resources being
// created, so a companion matches when either its refAttr value equals one
// of the owner's identifying attributes (id, arn, bucket, name), or it
// shares the owner's local name within the same module (the usual
// aws_s3_bucket.logs / aws_s3_bucket_versioning.logs convention).
func Companions(p *models.Plan, owner *models.ResourceChange, companionType, refAttr string) []*models.ResourceChange {
	if p == nil || owner == nil {
		return nil
	}
	ids := make(map[string]struct{})
	if cfg := owner.Change.After; cfg != nil {
		for _, k := range []string{"id", "arn", "bucket", "name"} {
			if v := String(cfg, k); v != "" {
				ids[v] = struct{}{}
			}
		}
	}

	var out []*models.ResourceChange
	for i := range p.ResourceChanges {
		rc := &p.ResourceChanges[i]
		if rc.Type != companionType || rc.Change.After == nil {
			continue
		}
		if _, ok := ids[String(rc.Change.After, refAttr)]; ok {
			out = append(out, rc)
			continue
		}
		if rc.Name == owner.Name && rc.ModuleAddress == owner.ModuleAddress {
			out = append(out, rc)
		}
	}
	return out
}
