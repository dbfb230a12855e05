package models

// Action is a single planned operation on a resource, as reported in the
// "actions" array of a Terraform JSON plan.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoOp   Action = "no-op"
	ActionRead   Action = "read"
)

// ChangeType is the summary classification of a resource change used for
// resource totals. Replacements are surfaced as updates.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	ChangeNoOp   ChangeType = "no-op"
)

// Plan is the parsed representation of an infrastructure change set.
// It is built once per analysis request and never mutated afterwards.
type Plan struct {
	FormatVersion    string                  `json:"format_version"`
	TerraformVersion string                  `json:"terraform_version"`
	Variables        map[string]PlanVariable `json:"variables,omitempty"`
	ResourceChanges  []ResourceChange        `json:"resource_changes"`
	Configuration    *PlanConfiguration      `json:"configuration,omitempty"`
}

// PlanVariable is an input variable value captured in the plan.
type PlanVariable struct {
	Value any `json:"value"`
}

// PlanConfiguration carries the provider and module metadata declared by the
// configuration that produced the plan.
type PlanConfiguration struct {
	ProviderConfig map[string]ProviderConfig `json:"provider_config,omitempty"`
	RootModule     *ModuleConfig             `json:"root_module,omitempty"`
}

// ProviderConfig describes one configured provider.
type ProviderConfig struct {
	Name              string `json:"name"`
	FullName          string `json:"full_name,omitempty"`
	VersionConstraint string `json:"version_constraint,omitempty"`
	ModuleAddress     string `json:"module_address,omitempty"`
}

// ModuleConfig is the declared module tree. Only the call names and sources
// are kept; expressions are not interpreted.
type ModuleConfig struct {
	ModuleCalls map[string]ModuleCall `json:"module_calls,omitempty"`
}

// ModuleCall is a child module declaration.
type ModuleCall struct {
	Source            string        `json:"source,omitempty"`
	VersionConstraint string        `json:"version_constraint,omitempty"`
	Module            *ModuleConfig `json:"module,omitempty"`
}

// ResourceChange is one planned mutation of one resource.
type ResourceChange struct {
	Address       string `json:"address"`
	ModuleAddress string `json:"module_address,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Index         any    `json:"index,omitempty"`
	ProviderName  string `json:"provider_name,omitempty"`
	Change        Change `json:"change"`
}

// Change holds the before/after configuration snapshots of a resource
// change together with its actions and sensitivity flags.
type Change struct {
	Actions         []Action       `json:"actions"`
	Before          map[string]any `json:"before"`
	After           map[string]any `json:"after"`
	AfterUnknown    any            `json:"after_unknown,omitempty"`
	BeforeSensitive any            `json:"before_sensitive,omitempty"`
	AfterSensitive  any            `json:"after_sensitive,omitempty"`
}

// HasAction reports whether a is one of the change actions.
func (rc *ResourceChange) HasAction(a Action) bool {
	for _, act := range rc.Change.Actions {
		if act == a {
			return true
		}
	}
	return false
}

// IsDestructive reports whether the change deletes the resource, either
// outright or as part of a replacement.
func (rc *ResourceChange) IsDestructive() bool {
	return rc.HasAction(ActionDelete)
}

// IsReplacement reports whether the resource is destroyed and recreated.
func (rc *ResourceChange) IsReplacement() bool {
	return rc.HasAction(ActionCreate) && rc.HasAction(ActionDelete)
}

// HasSensitiveValues reports whether any before or after value is marked
// sensitive.
func (rc *ResourceChange) HasSensitiveValues() bool {
	return anyTrue(rc.Change.BeforeSensitive) || anyTrue(rc.Change.AfterSensitive)
}

// ChangeType classifies the change for summary totals: create+delete counts
// as an update, a lone create or delete keeps its name and everything else,
// in-place updates included, is a no-op.
func (rc *ResourceChange) ChangeType() ChangeType {
	create := rc.HasAction(ActionCreate)
	del := rc.HasAction(ActionDelete)
	switch {
	case create && del:
		return ChangeUpdate
	case create:
		return ChangeCreate
	case del:
		return ChangeDelete
	default:
		return ChangeNoOp
	}
}

// anyTrue walks a sensitivity structure (bool, map, or list) and reports
// whether any leaf is true.
func anyTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case map[string]any:
		for _, child := range t {
			if anyTrue(child) {
				return true
			}
		}
	case []any:
		for _, child := range t {
			if anyTrue(child) {
				return true
			}
		}
	}
	return false
}
