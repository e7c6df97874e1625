// Package plan loads flight plans: named lists of stages, each a list of
// actions, flown in order as the root maneuver of a mission.
package plan

// Action is one step of a stage. Payload strings may reference outputs of
// earlier stages as @results.<id>.<key>.
type Action struct {
	ID      string         `json:"id"`
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
	// Options restricts the control options offered for this action, by
	// option value ("a", "m", "so", ...).
	Options []string `json:"options,omitempty"`
}

type Stage struct {
	Stage   int      `json:"stage"`
	Actions []Action `json:"actions"`
}

type Plan struct {
	Stages []Stage `json:"plan"`
}

type NamedPlan struct {
	Name string
	Plan *Plan
}

// Count returns the number of stages and actions.
func (p *Plan) Count() (stages, actions int) {
	for _, s := range p.Stages {
		actions += len(s.Actions)
	}
	return len(p.Stages), actions
}

// riskyActions change things outside the browser and need confirmation.
var riskyActions = map[string]struct{}{
	"system.delete_file":   {},
	"system.delete_folder": {},
	"script.run":           {},
}

func IsRisky(p *Plan) bool {
	for _, stage := range p.Stages {
		for _, action := range stage.Actions {
			if _, exists := riskyActions[action.Action]; exists {
				return true
			}
		}
	}
	return false
}
