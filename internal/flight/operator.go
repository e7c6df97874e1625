package flight

import (
	"context"
	"errors"

	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/flightlog"
)

// Operator is the person (or script) steering a run. Every prompt may be
// time-boxed and answers with the default when it times out or when the
// operator is not interactive. Prompts fail with ErrInterrupt or ErrAbort.
type Operator interface {
	Interactive() bool
	SetInteractive(bool)
	PresentMessage(msg string)
	PresentError(err error)
	PresentMenu(ctx context.Context, options []Option, def Option, message string) (Option, error)
	PresentConfirmation(ctx context.Context, prompt string, def bool) (bool, error)
	// Interact runs an interaction session. Maneuvers enqueued on the
	// session are flown once it returns.
	Interact(ctx context.Context, kind Option, s *Session) error
	// Postmortem inspects a failed attempt. ErrDebuggerQuit ends the run.
	Postmortem(ctx context.Context, s *Session, cause error) error
}

// Pilot is the identity and browser a run flies with.
type Pilot struct {
	Name    string
	Browser browser.Browser
}

// Session is what an interaction or postmortem can see and do.
type Session struct {
	Controller *Controller
	Pilot      *Pilot
	Maneuver   Maneuver
	Mission    Mission
	Cause      error

	queue *InteractQueue
}

func (s *Session) Log() *flightlog.Log { return s.Controller.Log }

// Enqueue adds a maneuver to fly after the session ends.
func (s *Session) Enqueue(m Maneuver) {
	if s.queue != nil {
		s.queue.Append(m)
	}
}

// Queued is the number of maneuvers waiting to fly.
func (s *Session) Queued() int {
	if s.queue == nil {
		return 0
	}
	return len(s.queue.Steps)
}

// Monitor captures progress snapshots. Snapshot must not block.
type Monitor interface {
	Snapshot(pilot *Pilot, log *flightlog.Log)
}

// CancelMission stops the mission the session belongs to. The run quits at
// its next option.
func (s *Session) CancelMission() error {
	if s.Controller.Cancel == nil {
		return errors.New("missions cannot be cancelled here")
	}
	return s.Controller.Cancel()
}
