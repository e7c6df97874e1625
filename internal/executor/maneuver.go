package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xyla-io/raspador/internal/actions"
	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/logger"
	"github.com/xyla-io/raspador/internal/plan"
	"github.com/xyla-io/raspador/internal/script"
)

// ActionManeuver flies one plan action. Its outputs are stored under the
// action id once an attempt succeeds.
type ActionManeuver struct {
	flight.Frame
	Action  plan.Action
	Timeout time.Duration

	results *Results
	options []flight.Option
	output  *flight.Ordnance[map[string]any]
	// browser and landing are where the last browser attempt started.
	browser browser.Browser
	landing string
}

func (m *ActionManeuver) Name() string {
	if m.Action.ID != "" {
		return m.Action.ID
	}
	return m.Action.Action
}

func (m *ActionManeuver) Instruction() string {
	return "run " + m.Action.Action
}

func (m *ActionManeuver) Detail() string {
	payload, _ := json.Marshal(m.Action.Payload)
	return fmt.Sprintf("%s %s", m.Action.Action, flightlog.Abbreviate(string(payload), 200))
}

func (m *ActionManeuver) Options() []flight.Option {
	return m.options
}

// Output is the outputs of the last successful attempt, if any.
func (m *ActionManeuver) Output() (map[string]any, bool) {
	if !m.output.Loaded() {
		return nil, false
	}
	return m.output.Peek(), true
}

func (m *ActionManeuver) Attempt(ctx context.Context, s *flight.Sortie) error {
	var b browser.Browser
	if p := s.Pilot(); p != nil {
		b = p.Browser
	}
	if b != nil && actions.UsesBrowser(m.Action.Action) {
		if u, err := b.CurrentURL(ctx); err == nil {
			m.browser, m.landing = b, u
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	out, err := actions.Execute(ctx, b, m.Action.Action, m.results.Resolve(m.Action.Payload))
	if err != nil {
		return fmt.Errorf("action '%s' (%s) failed: %w", m.Action.Action, m.Action.ID, err)
	}
	m.output.Load(out)
	m.results.Store(m.Action.ID, out)
	return nil
}

// Abort returns the browser to the page the failed attempt started from.
func (m *ActionManeuver) Abort(ctx context.Context, _ error) error {
	if m.browser == nil || m.landing == "" {
		return nil
	}
	logger.Log.Infof("[Executor] Returning to %s before retrying %s", m.landing, m.Name())
	return m.browser.Navigate(ctx, m.landing)
}

// ClearRun forgets the landing page once an attempt did not fail, so the
// next attempt records its own.
func (m *ActionManeuver) ClearRun() {
	if m.Status() == flight.StatusError {
		return
	}
	m.browser = nil
	m.landing = ""
}

// ScriptManeuver runs a script file and then flies the maneuvers it queued
// as a non-required sequence.
type ScriptManeuver struct {
	flight.Frame
	Path   string
	Runner *script.Runner
}

func (m *ScriptManeuver) Name() string { return "Script" }

func (m *ScriptManeuver) Instruction() string {
	return "run script " + filepath.Base(m.Path)
}

func (m *ScriptManeuver) Attempt(ctx context.Context, s *flight.Sortie) error {
	source, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	queue := &flight.Sequence{Label: "ScriptQueue"}
	env := script.Env{Mission: s.Mission(), Enqueue: queue.Append}
	if p := s.Pilot(); p != nil {
		env.Browser = p.Browser
	}
	if err := m.Runner.Run(ctx, string(source), env); err != nil {
		return err
	}
	if queue.Empty() {
		return nil
	}
	logger.Log.Infof("[Executor] %s queued %d maneuver(s)", filepath.Base(m.Path), len(queue.Steps))
	_, err = s.Fly(ctx, queue)
	return err
}
