package plan

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

var knownActions = map[models.Action]struct{}{
	models.ActionCreate: {},
	models.ActionUpdate: {},
	models.ActionDelete: {},
	models.ActionNoOp:   {},
	models.ActionRead:   {},
}

// Validate checks the structural invariants of a decoded plan and returns the
// first violation as a *models.ValidationError.
//
// Checks performed:
//   - format_version and terraform_version must be set
//   - resource_changes must be present (an empty list is valid)
//   - every resource change needs address, type, name and at least one
//     known action
func Validate(p *models.Plan) error {
	if p == nil {
		return models.NewValidationError("plan", "required")
	}
	if p.FormatVersion == "" {
		return models.NewValidationError("format_version", "required")
	}
	if p.TerraformVersion == "" {
		return models.NewValidationError("terraform_version", "required")
	}
	if p.ResourceChanges == nil {
		return models.NewValidationError("resource_changes", "required")
	}

	for i := range p.ResourceChanges {
		if err := validateResourceChange(i, &p.ResourceChanges[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateResourceChange(i int, rc *models.ResourceChange) error {
	required := []struct {
		field string
		value string
	}{
		{"address", rc.Address},
		{"type", rc.Type},
		{"name", rc.Name},
	}
	for _, r := range required {
		if r.value == "" {
			return &models.ValidationError{Field: r.field, Index: i, Reason: "required"}
		}
	}

	if len(rc.Change.Actions) == 0 {
		return &models.ValidationError{Field: "change.actions", Index: i, Reason: "must contain at least one action"}
	}
	for _, a := range rc.Change.Actions {
		if _, ok := knownActions[a]; !ok {
			return &models.ValidationError{
				Field:  "change.actions",
				Index:  i,
				Reason: fmt.Sprintf("unknown action %q", a),
			}
		}
	}
	return nil
}
