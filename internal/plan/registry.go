package plan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

//go:embed actions.json
var builtinActions []byte

type PayloadSchema struct {
	Required []string `json:"required"`
	// AnyOf needs at least one of its keys.
	AnyOf []string `json:"any_of,omitempty"`
}

type OutputSchema struct {
	Keys []string `json:"keys"`
}

type ActionDefinition struct {
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	PayloadSchema    PayloadSchema `json:"payload_schema"`
	OutputSchema     OutputSchema  `json:"output_schema"`
	DefaultTimeoutMs int           `json:"default_timeout_ms,omitempty"`
}

// Timeout is the definition's default timeout, or fallback.
func (d ActionDefinition) Timeout(fallback time.Duration) time.Duration {
	if d.DefaultTimeoutMs > 0 {
		return time.Duration(d.DefaultTimeoutMs) * time.Millisecond
	}
	return fallback
}

type ActionRegistry struct {
	Actions    []ActionDefinition
	actionsMap map[string]ActionDefinition
}

// ParseActionRegistry reads definitions in the {"actions": [...]} format.
func ParseActionRegistry(data []byte) (*ActionRegistry, error) {
	var registry struct {
		Actions []ActionDefinition `json:"actions"`
	}
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("could not parse action registry JSON: %w", err)
	}
	return NewActionRegistry(registry.Actions...), nil
}

func NewActionRegistry(defs ...ActionDefinition) *ActionRegistry {
	actionsMap := make(map[string]ActionDefinition, len(defs))
	for _, d := range defs {
		actionsMap[d.Name] = d
	}
	return &ActionRegistry{Actions: defs, actionsMap: actionsMap}
}

// Builtin is the registry of every action raspador can fly.
func Builtin() *ActionRegistry {
	r, err := ParseActionRegistry(builtinActions)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *ActionRegistry) GetDefinition(actionName string) (ActionDefinition, bool) {
	def, found := r.actionsMap[actionName]
	return def, found
}

// Describe lists the actions with their payload keys.
func (r *ActionRegistry) Describe() string {
	var sb strings.Builder
	sb.WriteString("Available actions:\n")
	for _, action := range r.Actions {
		keys := append([]string(nil), action.PayloadSchema.Required...)
		if len(action.PayloadSchema.AnyOf) > 0 {
			keys = append(keys, strings.Join(action.PayloadSchema.AnyOf, "|"))
		}
		fmt.Fprintf(&sb, "- %s: %s Payload: [%s].\n", action.Name, action.Description, strings.Join(keys, ", "))
	}
	return sb.String()
}

// ValidateAction checks an action's payload against its schema.
func (r *ActionRegistry) ValidateAction(action *Action) error {
	def, found := r.GetDefinition(action.Action)
	if !found {
		return fmt.Errorf("action '%s' is not defined in the registry", action.Action)
	}
	for _, requiredKey := range def.PayloadSchema.Required {
		if _, ok := action.Payload[requiredKey]; !ok {
			return fmt.Errorf("action '%s' is missing required payload key: '%s'", action.Action, requiredKey)
		}
	}
	if anyOf := def.PayloadSchema.AnyOf; len(anyOf) > 0 {
		found := false
		for _, key := range anyOf {
			if _, ok := action.Payload[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("action '%s' needs one of the payload keys: '%s'", action.Action, strings.Join(anyOf, "', '"))
		}
	}
	return nil
}

// ValidatePlan checks every action and that references only point to
// earlier stages.
func (r *ActionRegistry) ValidatePlan(p *Plan) error {
	ids := map[string]struct{}{}
	for _, stage := range p.Stages {
		for i := range stage.Actions {
			action := &stage.Actions[i]
			if err := r.ValidateAction(action); err != nil {
				return err
			}
			if action.ID == "" {
				continue
			}
			if _, dup := ids[action.ID]; dup {
				return fmt.Errorf("action id '%s' is used more than once", action.ID)
			}
			ids[action.ID] = struct{}{}
		}
	}
	return validateStageDependencies(p)
}
