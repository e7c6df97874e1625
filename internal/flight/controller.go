// Package flight drives maneuvers: it picks an option for every attempt,
// records each attempt as a position, and moves control between nested
// maneuvers according to the operator's choices and the signals they raise.
package flight

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/logger"
)

// NoRetryLimit disables the retry budget.
const NoRetryLimit = -1

const tracerName = "github.com/xyla-io/raspador/internal/flight"

type Settings struct {
	// Mode is the run mode the controller starts in.
	Mode Option
	// Retry is how many errored attempts of one maneuver are allowed before
	// skip-up becomes the default.
	Retry         int
	BreakOnErrors bool
	// DetailLength bounds detail and instruction in the flight log.
	DetailLength int
	// Deadline quits the run at the next attempt after it passes.
	Deadline time.Time
	Monitor  Monitor
	// Interrupts cancel the innermost running attempt with ErrInterrupt.
	Interrupts <-chan os.Signal
}

func DefaultSettings() Settings {
	return Settings{
		Mode:         ModeAutomatic,
		Retry:        NoRetryLimit,
		DetailLength: 2048,
	}
}

// Controller flies maneuvers for one run. It is not safe for concurrent use.
type Controller struct {
	Settings
	Name     string
	Operator Operator
	Log      *flightlog.Log
	// Cancel stops the current mission; nil when the host cannot.
	Cancel func() error

	mode   Option
	depth  int
	tracer trace.Tracer
	now    func() time.Time

	mu      sync.Mutex
	cancels []context.CancelCauseFunc
}

func New(name string, operator Operator, log *flightlog.Log, settings Settings) *Controller {
	if log == nil {
		log = flightlog.New()
	}
	if settings.Mode.IsZero() {
		settings.Mode = ModeAutomatic
	}
	return &Controller{
		Settings: settings,
		Name:     name,
		Operator: operator,
		Log:      log,
		mode:     settings.Mode,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

// Mode is the sticky run mode.
func (c *Controller) Mode() Option { return c.mode }

func (c *Controller) SetMode(mode Option) {
	if mode.IsMode() {
		c.mode = mode
	}
}

// Fly attempts m until it finishes, the operator quits, or a signal has to
// leave this frame. Quit with an empty mission ends the run without error.
func (c *Controller) Fly(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission) (Maneuver, error) {
	if c.depth == 0 {
		stop := c.listenForInterrupts()
		defer stop()
	}
	c.depth++
	defer func() { c.depth-- }()

	var (
		option  Option
		lastErr error
	)
	for {
		if c.Monitor != nil {
			c.Monitor.Snapshot(pilot, c.Log)
		}
		if m == nil || isNil(m) || m.Base() == nil {
			return m, &InvalidManeuverError{Maneuver: m}
		}
		c.Operator.PresentMessage(c.MissionDescription(pilot, mission, m, false))

		chosen, err := c.nextOption(ctx, pilot, m, mission, option, lastErr)
		if errors.Is(err, ErrInterrupt) {
			abort, cerr := c.confirmAbort(ctx)
			if cerr != nil {
				return m, cerr
			}
			if abort {
				return m, err
			}
			continue
		}
		if err != nil {
			return m, err
		}
		option = chosen
		if chosen.IsMode() {
			c.mode = chosen
		}

		pos := NewPosition(chosen)
		pos.now = c.now
		if err := pos.Enter(); err != nil {
			return m, err
		}
		m.Base().push(pos)

		err = c.attempt(ctx, pilot, m, mission, lastErr)
		err, escalate := c.classify(ctx, pilot, m, mission, err)
		if errors.Is(err, ErrAbort) {
			return m, err
		}
		if serr := pos.Stabilize(err); serr != nil {
			return m, serr
		}
		c.record(ctx, pilot, m, mission)
		if cl, ok := m.(Clearer); ok {
			cl.ClearRun()
		}
		if escalate {
			return m, err
		}
		lastErr = err

		proceed, err := c.continuation(chosen, lastErr, m, mission)
		if err != nil {
			return m, err
		}
		if !proceed {
			return m, nil
		}
		if m.Base().Status().Finished() {
			c.Operator.PresentMessage(c.MissionDescription(pilot, mission, m, true))
			if c.mode == ModeStepNext && slices.Contains(OptionsOf(m), ModeStepNext) {
				if _, err := c.Fly(ctx, pilot, NewBreak(m), mission.With(m)); err != nil {
					if len(mission) == 0 && errors.Is(err, ErrQuit) {
						return m, nil
					}
					return m, err
				}
			}
			return m, nil
		}
	}
}

func (c *Controller) nextOption(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission, option Option, lastErr error) (Option, error) {
	if !c.Deadline.IsZero() && !c.now().Before(c.Deadline) {
		logger.Log.Warnf("[Controller] Time limit reached at %s", c.path(pilot, mission, m))
		c.Operator.PresentMessage("Time limit reached.")
		return ActionQuit, nil
	}
	if err := ctx.Err(); err != nil {
		logger.Log.Warnf("[Controller] Run cancelled at %s: %v", c.path(pilot, mission, m), err)
		return ActionQuit, nil
	}
	return c.SelectOption(ctx, m, option, lastErr, c.breakDescription(pilot, m, mission))
}

func (c *Controller) attempt(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission, lastErr error) error {
	option := m.Base().Position().Option
	switch {
	case option.IsMode():
		return c.attemptMode(ctx, pilot, m, mission, option)
	case option.IsInteraction():
		return c.interact(ctx, pilot, m, mission, option, lastErr)
	}
	switch option {
	case ActionRepair:
		if a, ok := m.(Aborter); ok {
			return a.Abort(ctx, lastErr)
		}
	case ActionQuit:
		c.Operator.PresentMessage("Quitting.")
		return NewSignal(SignalQuit, m)
	case ActionSkipOver:
		return NewSignal(SignalSkipOver, m)
	case ActionSkipUp:
		return NewSignal(SignalSkipUp, m)
	case ActionSkipToBreak:
		return NewSignal(SignalSkipToBreak, m)
	}
	return nil
}

func (c *Controller) attemptMode(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission, option Option) (err error) {
	ctx, span := c.tracer.Start(ctx, "flight.attempt", trace.WithAttributes(
		attribute.String("raspador.maneuver", NameOf(m)),
		attribute.String("raspador.maneuver_id", m.Base().ID()),
		attribute.String("raspador.option", option.Label()),
		attribute.String("raspador.mission", mission.Breadcrumb()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorName(err))
		}
		span.End()
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	c.pushCancel(cancel)
	defer func() {
		c.popCancel()
		cancel(nil)
	}()

	s := &Sortie{controller: c, pilot: pilot, mission: mission.With(m)}
	if option == ModeManual {
		c.Operator.PresentMessage(DetailOf(m))
		err = c.attemptManually(ctx, m, s)
	} else {
		err = m.Attempt(ctx, s)
	}
	if s.signal != nil {
		err = s.signal
	}
	if err != nil && errors.Is(context.Cause(ctx), ErrInterrupt) && !errors.Is(err, ErrInterrupt) {
		err = ErrInterrupt
	}
	return err
}

func (c *Controller) attemptManually(ctx context.Context, m Maneuver, s *Sortie) error {
	if ma, ok := m.(ManualAttempter); ok {
		return ma.AttemptManually(ctx, s)
	}
	done, err := c.Operator.PresentConfirmation(ctx, "Enter (Y)es when completed or (N)o to cancel", true)
	if err != nil {
		return err
	}
	if !done {
		return NewSignal(SignalDidNotCompleteManually, m)
	}
	return nil
}

func (c *Controller) interact(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission, kind Option, lastErr error) error {
	queue := NewInteractQueue()
	session := &Session{Controller: c, Pilot: pilot, Maneuver: m, Mission: mission, Cause: lastErr, queue: queue}
	if err := c.Operator.Interact(ctx, kind, session); err != nil {
		return err
	}
	if queue.Empty() {
		return nil
	}
	_, err := c.Fly(ctx, pilot, queue, mission)
	if errors.Is(err, ErrSkipToBreak) {
		err = nil
	}
	if c.mode == ModeStepToBreak {
		c.mode = ModeStepNext
	}
	return err
}

// classify decides what an attempt's error means. The second result is true
// when the error has to leave the frame right after it is recorded.
func (c *Controller) classify(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission, err error) (error, bool) {
	switch {
	case err == nil, errors.Is(err, ErrAbort), errors.Is(err, ErrDebuggerQuit):
		return err, false
	case errors.Is(err, ErrInterrupt):
		abort, cerr := c.confirmAbort(ctx)
		if cerr != nil {
			return cerr, false
		}
		if abort {
			c.Operator.SetInteractive(false)
			return err, true
		}
		return err, false
	}
	if _, ok := AsSignal(err); ok {
		return err, false
	}
	return c.postmortem(ctx, pilot, m, mission, err), false
}

func (c *Controller) confirmAbort(ctx context.Context) (bool, error) {
	abort, err := c.Operator.PresentConfirmation(ctx, "Abort", true)
	switch {
	case errors.Is(err, ErrInterrupt):
		return true, nil
	case err != nil:
		return false, err
	}
	return abort, nil
}

func (c *Controller) postmortem(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission, err error) error {
	logger.Log.Errorw("[Controller] Attempt failed",
		"maneuver", NameOf(m), "mission", mission.Breadcrumb(), "error", err)
	c.Operator.PresentMessage(c.MissionDescription(pilot, mission, nil, false) +
		"\nError encountered at " + c.path(pilot, mission, m))
	c.Operator.PresentError(err)

	start := c.BreakOnErrors
	if !start {
		var cerr error
		start, cerr = c.Operator.PresentConfirmation(ctx, "Start postmortem", false)
		if errors.Is(cerr, ErrAbort) {
			return cerr
		}
	}
	if !start {
		return err
	}

	session := &Session{Controller: c, Pilot: pilot, Maneuver: m, Mission: mission, Cause: err}
	for {
		c.Operator.PresentMessage(c.catchDescription(pilot, m, mission, err))
		perr := c.Operator.Postmortem(ctx, session, err)
		if errors.Is(perr, ErrDebuggerQuit) || errors.Is(perr, ErrAbort) {
			return perr
		}
		again, cerr := c.Operator.PresentConfirmation(ctx, "Repeat postmortem", false)
		if errors.Is(cerr, ErrAbort) {
			return cerr
		}
		if !again {
			return err
		}
	}
}

// continuation applies the option's effect on the run mode and decides
// whether m gets another attempt. A non-nil error leaves the frame.
func (c *Controller) continuation(option Option, err error, m Maneuver, mission Mission) (bool, error) {
	switch {
	case option == ModeStepOver:
		c.mode = ModeStepNext
	case option == ModeStepUp:
		c.mode = ModeStepOver
	case option == ModeStepToBreak && len(mission) == 0:
		c.mode = ModeStepNext
	}

	switch {
	case isQuit(err):
		if len(mission) == 0 {
			return false, nil
		}
		if errors.Is(err, ErrQuit) {
			return false, err
		}
		return false, NewSignal(SignalQuit, m)
	case IsSkip(err) && len(mission) == 0:
		c.mode = ModeStepNext
	case errors.Is(err, ErrSkipUp):
		return false, NewSignal(SignalSkipOver, m)
	case errors.Is(err, ErrSkipToBreak):
		return false, NewSignal(SignalSkipToBreak, m)
	}
	return true, nil
}

func (c *Controller) record(ctx context.Context, pilot *Pilot, m Maneuver, mission Mission) {
	b := m.Base()
	p := b.Position()
	result := ""
	if status := b.Status(); status.Finished() {
		result = string(status)
	}
	// Rows of a cancelled run still reach the sinks.
	c.Log.Append(context.WithoutCancel(ctx), flightlog.Row{
		EntryTime:   p.EntryTime,
		StableTime:  p.StableTime,
		Raspador:    c.Name,
		Pilot:       pilotName(pilot),
		Mission:     mission.Breadcrumb(),
		Maneuver:    NameOf(m),
		Option:      p.Option.Label(),
		Error:       ErrorName(p.Err),
		Detail:      flightlog.Abbreviate(DetailOf(m), c.DetailLength),
		Result:      result,
		Instruction: flightlog.Abbreviate(InstructionOf(m), c.DetailLength),
		ID:          p.ID,
		ManeuverID:  b.ID(),
		MissionID:   strings.Join(mission.IDs(), "."),
	})
}

func (c *Controller) listenForInterrupts() func() {
	if c.Interrupts == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case <-c.Interrupts:
				c.interruptInnermost()
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (c *Controller) pushCancel(cancel context.CancelCauseFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels = append(c.cancels, cancel)
}

func (c *Controller) popCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels = c.cancels[:len(c.cancels)-1]
}

func (c *Controller) interruptInnermost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.cancels); n > 0 {
		c.cancels[n-1](ErrInterrupt)
	}
}

// Sortie is handed to Attempt. Through it a maneuver flies its children.
type Sortie struct {
	controller *Controller
	pilot      *Pilot
	mission    Mission
	signal     error
}

func (s *Sortie) Controller() *Controller { return s.controller }
func (s *Sortie) Pilot() *Pilot           { return s.pilot }

// Mission ends with the maneuver being attempted.
func (s *Sortie) Mission() Mission { return s.mission }

// Fly flies child to completion under this attempt and returns it. Once a
// child has sent a signal up, it becomes the outcome of the whole attempt
// and later calls return it without flying anything.
func (s *Sortie) Fly(ctx context.Context, child Maneuver) (Maneuver, error) {
	if s.signal != nil {
		return child, s.signal
	}
	flown, err := s.controller.Fly(ctx, s.pilot, child, s.mission)
	if err != nil && escapes(err) {
		s.signal = err
	}
	return flown, err
}

func escapes(err error) bool {
	if _, ok := AsSignal(err); ok {
		return true
	}
	return errors.Is(err, ErrInterrupt) || errors.Is(err, ErrAbort) || errors.Is(err, ErrDebuggerQuit)
}

func pilotName(p *Pilot) string {
	if p == nil {
		return ""
	}
	return p.Name
}
