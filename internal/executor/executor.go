// Package executor turns flight plans into maneuvers: the plan is a required
// sequence of stages, each stage a required sequence of its actions.
package executor

import (
	"fmt"
	"io"
	"time"

	"github.com/xyla-io/raspador/internal/actions"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/plan"
	"github.com/xyla-io/raspador/internal/script"
)

const defaultActionTimeout = 30 * time.Second

type Builder struct {
	Registry *plan.ActionRegistry
	Results  *Results
	Scripts  *script.Runner
	// Pause waits between the actions of a stage.
	Pause time.Duration
}

// New returns a builder over the builtin actions whose scripts print to out.
func New(out io.Writer) *Builder {
	b := &Builder{Registry: plan.Builtin(), Results: NewResults()}
	b.Scripts = &script.Runner{Build: b.Maneuver, Out: out}
	return b
}

// Build validates p and returns its root maneuver.
func (b *Builder) Build(name string, p *plan.Plan) (*flight.Sequence, error) {
	if err := b.Registry.ValidatePlan(p); err != nil {
		return nil, fmt.Errorf("plan %s: %w", name, err)
	}
	root := flight.NewSequence(name)
	for i, stage := range p.Stages {
		number := stage.Stage
		if number == 0 {
			number = i + 1
		}
		seq := flight.NewSequence(fmt.Sprintf("Stage%d", number))
		seq.Pause = b.Pause
		var prev flight.Maneuver
		for _, action := range stage.Actions {
			m, err := b.build(action, prev)
			if err != nil {
				return nil, fmt.Errorf("plan %s stage %d: %w", name, number, err)
			}
			seq.Append(m)
			prev = m
		}
		root.Append(seq)
	}
	return root, nil
}

// Maneuver builds a single action outside a plan, as scripts do.
func (b *Builder) Maneuver(action string, payload map[string]any) (flight.Maneuver, error) {
	a := plan.Action{Action: action, Payload: payload}
	if err := b.Registry.ValidateAction(&a); err != nil {
		return nil, err
	}
	if action == "flow.break" {
		return nil, fmt.Errorf("flow.break needs a preceding action")
	}
	return b.build(a, nil)
}

func (b *Builder) build(a plan.Action, prev flight.Maneuver) (flight.Maneuver, error) {
	switch a.Action {
	case "flow.quit":
		return &flight.QuitManeuver{}, nil
	case "flow.interact":
		return &flight.Interact{}, nil
	case "flow.break":
		if prev == nil {
			return nil, fmt.Errorf("flow.break cannot start a stage")
		}
		return flight.NewBreak(prev), nil
	case "script.run":
		path, _ := a.Payload["path"].(string)
		if path == "" {
			return nil, fmt.Errorf("script.run needs a path")
		}
		return &ScriptManeuver{Path: path, Runner: b.Scripts}, nil
	}

	options, err := actionOptions(a)
	if err != nil {
		return nil, err
	}
	timeout := defaultActionTimeout
	if def, ok := b.Registry.GetDefinition(a.Action); ok {
		timeout = def.Timeout(defaultActionTimeout)
	}
	return &ActionManeuver{
		Action:  a,
		Timeout: timeout,
		results: b.Results,
		options: options,
		output:  flight.NewOrdnance[map[string]any](),
	}, nil
}

// actionOptions parses the plan's option values. Without any, browser
// actions also offer to repair the page.
func actionOptions(a plan.Action) ([]flight.Option, error) {
	if len(a.Options) == 0 {
		options := flight.DefaultOptions()
		if actions.UsesBrowser(a.Action) {
			options = append(options, flight.ActionRepair)
		}
		return options, nil
	}
	options := make([]flight.Option, 0, len(a.Options))
	for _, v := range a.Options {
		o, ok := flight.ParseOption(v)
		if !ok {
			return nil, fmt.Errorf("action '%s' has unknown option %q", a.ID, v)
		}
		options = append(options, o)
	}
	return options, nil
}
