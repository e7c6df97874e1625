package flight

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xyla-io/raspador/internal/flightlog"
)

func options(m Maneuver) []Option {
	var out []Option
	for _, p := range m.Base().Trajectory() {
		out = append(out, p.Option)
	}
	return out
}

func TestFlyCompletesInOneAttempt(t *testing.T) {
	op := newScriptedOperator()
	c := newTestController(op, DefaultSettings())
	m, calls := countingFunc("Land")

	flown, err := c.Fly(context.Background(), testPilot, m, nil)
	require.NoError(t, err)
	assert.Same(t, m, flown)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, StatusCompleted, m.Status())
	require.Len(t, m.Trajectory(), 1)
	assert.Empty(t, op.menus, "automatic mode flies without a menu")

	rows := c.Log.Rows()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "TestRaspador", row.Raspador)
	assert.Equal(t, "TestPilot", row.Pilot)
	assert.Equal(t, "", row.Mission)
	assert.Equal(t, "Land", row.Maneuver)
	assert.Equal(t, ModeAutomatic.Label(), row.Option)
	assert.Equal(t, "", row.Error)
	assert.Equal(t, string(StatusCompleted), row.Result)
	assert.Equal(t, m.Position().ID, row.ID)
	assert.Equal(t, m.ID(), row.ManeuverID)
	assert.True(t, row.StableTime.After(row.EntryTime))
}

func TestFlyInvalidManeuver(t *testing.T) {
	c := newTestController(newScriptedOperator(), DefaultSettings())

	_, err := c.Fly(context.Background(), testPilot, nil, nil)
	var invalid *InvalidManeuverError
	require.ErrorAs(t, err, &invalid)

	var typedNil *Func
	_, err = c.Fly(context.Background(), testPilot, typedNil, nil)
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, c.Log.Len())
}

func TestRequiredChildSkipOverSkipsParent(t *testing.T) {
	testCases := []struct {
		name   string
		signal SignalKind
	}{
		{name: "child raises skip over", signal: SignalSkipOver},
		{name: "child skips up into its parent", signal: SignalSkipUp},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			op := newScriptedOperator()
			c := newTestController(op, DefaultSettings())
			b := NewFunc("B", func(context.Context, *Sortie) error { return NewSignal(tc.signal, nil) })
			cm, cCalls := countingFunc("C")
			a := NewSequence("A", b, cm)
			root := NewSequence("Root", a)

			_, err := c.Fly(context.Background(), testPilot, root, nil)
			require.NoError(t, err)

			assert.Equal(t, StatusSkipped, b.Status())
			assert.Equal(t, StatusSkipped, a.Status())
			assert.ErrorIs(t, a.Position().Err, ErrSkipOver)
			assert.Len(t, a.Trajectory(), 1)
			assert.Zero(t, *cCalls)
			assert.Empty(t, cm.Trajectory(), "C is never attempted")
		})
	}
}

func TestRequiredChildErrorIsRecorded(t *testing.T) {
	child := NewFunc("Child", nil)
	err := Require(child)
	var required *ManeuverRequiredError
	require.ErrorAs(t, err, &required)
	assert.Equal(t, StatusReady, required.Status)
}

func TestQuitUnwindsToTheTop(t *testing.T) {
	op := newScriptedOperator()
	c := newTestController(op, DefaultSettings())
	q := &QuitManeuver{}
	after, afterCalls := countingFunc("After")
	b := NewSequence("B", q)
	a := NewSequence("A", b, after)

	flown, err := c.Fly(context.Background(), testPilot, a, nil)
	require.NoError(t, err, "quit with an empty mission stops without error")
	assert.Same(t, a, flown)

	for _, m := range []Maneuver{q, b, a} {
		assert.Equal(t, StatusSkipped, m.Base().Status(), NameOf(m))
		assert.ErrorIs(t, m.Base().Position().Err, ErrQuit, NameOf(m))
	}
	assert.Zero(t, *afterCalls)
	assert.Equal(t, 3, c.Log.Len())
}

func TestQuitOptionInNestedFrame(t *testing.T) {
	op := newScriptedOperator(ActionQuit)
	c := newTestController(op, DefaultSettings())
	failing, _ := countingFunc("Failing", errors.New("boom"))
	root := NewSequence("Root", failing)

	_, err := c.Fly(context.Background(), testPilot, root, nil)
	require.NoError(t, err)
	assert.Equal(t, []Option{ModeAutomatic, ActionQuit}, options(failing))
	assert.Equal(t, StatusSkipped, root.Status())
}

func TestRetryBudgetForcesSkipUp(t *testing.T) {
	boom := errors.New("boom")
	settings := DefaultSettings()
	settings.Retry = 2
	op := newScriptedOperator()
	c := newTestController(op, settings)
	m, calls := countingFunc("Flaky", boom, boom, boom, boom)
	parent := NewSequence("Parent", m)
	parent.Required = false
	root := NewSequence("Root", parent)

	_, err := c.Fly(context.Background(), testPilot, root, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, *calls)
	assert.Equal(t, []Option{ModeAutomatic, ModeAutomatic, ModeAutomatic, ActionSkipUp}, options(m))
	assert.Equal(t, StatusSkipped, m.Status())
	assert.ErrorIs(t, parent.Position().Err, ErrSkipOver, "skip up becomes skip over one level up")
	require.GreaterOrEqual(t, len(op.menus), 3)
	assert.Equal(t, ActionSkipUp, op.menus[2].def)
}

func TestRepairEnvironmentRetriesInPlace(t *testing.T) {
	boom := errors.New("stale page")
	op := newScriptedOperator()
	c := newTestController(op, DefaultSettings())
	m := &repairable{Func: *NewFunc("Repairable", nil)}
	m.Run = func(context.Context, *Sortie) error {
		m.attempts++
		if m.attempts == 1 {
			return boom
		}
		return nil
	}
	root := NewSequence("Root", m)

	_, err := c.Fly(context.Background(), testPilot, root, nil)
	require.NoError(t, err)

	assert.Equal(t, []error{boom}, m.aborted)
	assert.Equal(t, []Option{ModeAutomatic, ActionRepair, ModeAutomatic}, options(m))
	assert.Equal(t, StatusCompleted, m.Status())
	rows := c.Log.Rows()
	for _, r := range rows {
		if r.Maneuver == "Repairable" {
			assert.Equal(t, "Root", r.Mission, "repair keeps the mission depth")
		}
	}
}

type repairable struct {
	Func
	attempts int
	aborted  []error
}

func (r *repairable) Options() []Option {
	return append(DefaultOptions(), ActionRepair)
}

func (r *repairable) Abort(_ context.Context, err error) error {
	r.aborted = append(r.aborted, err)
	return nil
}

func TestStepNextFliesBreakAfterCompletion(t *testing.T) {
	settings := DefaultSettings()
	settings.Mode = ModeStepNext
	op := newScriptedOperator(ModeStepNext, ModeAutomatic)
	c := newTestController(op, settings)
	m, _ := countingFunc("Step")

	_, err := c.Fly(context.Background(), testPilot, m, nil)
	require.NoError(t, err)

	require.Len(t, op.menus, 2)
	assert.Equal(t, ModeStepNext, op.menus[0].def)
	assert.NotContains(t, op.menus[1].options, ModeStepNext, "a break cannot step next into itself")

	rows := c.Log.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Step", rows[0].Maneuver)
	assert.Equal(t, "Break", rows[1].Maneuver)
	assert.Equal(t, "Step", rows[1].Mission)
	assert.Equal(t, ModeAutomatic, c.Mode())
}

func TestStepOverAndUpAdjustMode(t *testing.T) {
	testCases := []struct {
		name   string
		answer Option
		want   Option
	}{
		{name: "step over", answer: ModeStepOver, want: ModeStepNext},
		{name: "step up", answer: ModeStepUp, want: ModeStepOver},
		{name: "step to breakpoint at top", answer: ModeStepToBreak, want: ModeStepNext},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.Mode = ModeManual
			op := newScriptedOperator(tc.answer, ModeAutomatic)
			c := newTestController(op, settings)
			m, _ := countingFunc("M")

			_, err := c.Fly(context.Background(), testPilot, m, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.answer, m.Trajectory()[0].Option)
			if tc.want == ModeStepNext {
				require.Len(t, op.menus, 2, "break flown under step next")
			} else {
				assert.Equal(t, tc.want, c.Mode())
			}
		})
	}
}

func TestManualAttempt(t *testing.T) {
	testCases := []struct {
		name    string
		confirm bool
		want    []Option
	}{
		{name: "operator confirms", confirm: true, want: []Option{ModeManual}},
		{name: "operator cancels", confirm: false, want: []Option{ModeManual, ActionQuit}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.Mode = ModeManual
			op := newScriptedOperator(ModeManual, ActionQuit)
			op.confirms["Enter (Y)es when completed or (N)o to cancel"] = []bool{tc.confirm}
			c := newTestController(op, settings)
			m, calls := countingFunc("Manual")

			_, err := c.Fly(context.Background(), testPilot, m, nil)
			require.NoError(t, err)
			assert.Zero(t, *calls, "manual mode does not run the maneuver")
			assert.Equal(t, tc.want, options(m))
			if tc.confirm {
				assert.NoError(t, m.Trajectory()[0].Err)
				assert.Equal(t, StatusCompleted, m.Status())
				return
			}
			assert.ErrorIs(t, m.Trajectory()[0].Err, ErrDidNotCompleteManually)
			assert.NotContains(t, op.prompts, "Start postmortem")
		})
	}
}

func TestInteractionFliesQueuedManeuvers(t *testing.T) {
	op := newScriptedOperator(InteractScript, ModeAutomatic)
	queued, queuedCalls := countingFunc("Queued")
	op.interactFn = func(_ context.Context, kind Option, s *Session) error {
		assert.Equal(t, InteractScript, kind)
		s.Enqueue(queued)
		return nil
	}
	c := newTestController(op, DefaultSettings())
	m, _ := countingFunc("Root", errors.New("first try fails"))

	_, err := c.Fly(context.Background(), testPilot, m, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, *queuedCalls)
	assert.Equal(t, StatusCompleted, queued.Status())
	assert.Equal(t, []Option{ModeAutomatic, InteractScript, ModeAutomatic}, options(m))
	require.Len(t, op.menus, 2)
	assert.Equal(t, InteractScript, op.menus[1].def, "the interaction stays the default")
}

func TestSkipToBreakAbsorbedByInteraction(t *testing.T) {
	settings := DefaultSettings()
	settings.Mode = ModeStepToBreak
	op := newScriptedOperator(InteractScript, ModeAutomatic)
	op.interactFn = func(_ context.Context, _ Option, s *Session) error {
		s.Enqueue(NewFunc("Jump", func(context.Context, *Sortie) error { return NewSignal(SignalSkipToBreak, nil) }))
		return nil
	}
	c := newTestController(op, settings)
	m, _ := countingFunc("Inner", errors.New("first try fails"))
	root := NewSequence("Root", m)

	_, err := c.Fly(context.Background(), testPilot, root, nil)
	require.NoError(t, err)

	traj := m.Trajectory()
	require.Len(t, traj, 3)
	assert.NoError(t, traj[1].Err, "skip to breakpoint stops at the interaction")
	assert.Equal(t, ModeStepNext, op.menus[1].mode)
}

func TestInterrupt(t *testing.T) {
	testCases := []struct {
		name    string
		abort   bool
		wantErr bool
	}{
		{name: "operator keeps going", abort: false},
		{name: "operator aborts", abort: true, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			op := newScriptedOperator()
			op.confirms["Abort"] = []bool{tc.abort}
			c := newTestController(op, DefaultSettings())
			m, _ := countingFunc("Interrupted", ErrInterrupt)

			_, err := c.Fly(context.Background(), testPilot, m, nil)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInterrupt)
				assert.False(t, op.Interactive())
				assert.Equal(t, StatusError, m.Status())
				assert.Equal(t, 1, c.Log.Len(), "the interrupted attempt is still recorded")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, m.Status())
			assert.ErrorIs(t, m.Trajectory()[0].Err, ErrInterrupt)
		})
	}
}

func TestInterruptSignalCancelsInnermostAttempt(t *testing.T) {
	defer goleak.VerifyNone(t)

	sigs := make(chan os.Signal, 1)
	settings := DefaultSettings()
	settings.Interrupts = sigs
	op := newScriptedOperator()
	op.confirms["Abort"] = []bool{false}
	c := newTestController(op, settings)

	calls := 0
	m := NewFunc("Blocking", func(ctx context.Context, _ *Sortie) error {
		calls++
		if calls > 1 {
			return nil
		}
		sigs <- os.Interrupt
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("not interrupted")
		}
	})
	root := NewSequence("Root", m)

	_, err := c.Fly(context.Background(), testPilot, root, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Trajectory()[0].Err, ErrInterrupt)
	assert.Equal(t, StatusCompleted, m.Status())
	assert.Equal(t, StatusCompleted, root.Status(), "only the innermost attempt is interrupted")
}

func TestAbortSkipsStabilization(t *testing.T) {
	c := newTestController(newScriptedOperator(), DefaultSettings())
	m, _ := countingFunc("Cancelled", ErrAbort)

	_, err := c.Fly(context.Background(), testPilot, m, nil)
	require.ErrorIs(t, err, ErrAbort)
	assert.Equal(t, StatusInProgress, m.Status())
	assert.Zero(t, c.Log.Len())
}

func TestPostmortem(t *testing.T) {
	boom := errors.New("boom")

	t.Run("debugger quit ends the run", func(t *testing.T) {
		settings := DefaultSettings()
		settings.BreakOnErrors = true
		op := newScriptedOperator()
		var got error
		op.postmortem = func(_ context.Context, s *Session, cause error) error {
			got = cause
			assert.Equal(t, "Failing", NameOf(s.Maneuver))
			return ErrDebuggerQuit
		}
		c := newTestController(op, settings)
		m, _ := countingFunc("Failing", boom)

		_, err := c.Fly(context.Background(), testPilot, m, nil)
		require.NoError(t, err)
		assert.Equal(t, boom, got)
		assert.Equal(t, StatusError, m.Status())
		rows := c.Log.Rows()
		require.Len(t, rows, 1)
		assert.Equal(t, "DebuggerQuit", rows[0].Error)
	})

	t.Run("operator declines postmortem", func(t *testing.T) {
		op := newScriptedOperator()
		called := false
		op.postmortem = func(context.Context, *Session, error) error {
			called = true
			return nil
		}
		c := newTestController(op, DefaultSettings())
		m, _ := countingFunc("Failing", boom)

		_, err := c.Fly(context.Background(), testPilot, m, nil)
		require.NoError(t, err)
		assert.False(t, called)
		assert.Contains(t, op.prompts, "Start postmortem")
		assert.Equal(t, []error{boom}, op.errs)
		assert.Equal(t, "Error", c.Log.Rows()[0].Error)
	})

	t.Run("repeat until declined", func(t *testing.T) {
		op := newScriptedOperator()
		op.confirms["Start postmortem"] = []bool{true}
		op.confirms["Repeat postmortem"] = []bool{true, false}
		sessions := 0
		op.postmortem = func(context.Context, *Session, error) error {
			sessions++
			return nil
		}
		c := newTestController(op, DefaultSettings())
		m, _ := countingFunc("Failing", boom)

		_, err := c.Fly(context.Background(), testPilot, m, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, sessions)
		assert.ErrorIs(t, m.Trajectory()[0].Err, boom)
	})
}

func TestDeadlineQuits(t *testing.T) {
	settings := DefaultSettings()
	settings.Deadline = time.Now().Add(-time.Second)
	op := newScriptedOperator()
	c := newTestController(op, settings)
	m, calls := countingFunc("Late")

	_, err := c.Fly(context.Background(), testPilot, m, nil)
	require.NoError(t, err)
	assert.Zero(t, *calls)
	assert.Equal(t, []Option{ActionQuit}, options(m))
	assert.Contains(t, op.messages, "Time limit reached.")
}

func TestCancelledContextQuits(t *testing.T) {
	t.Run("cancelled before the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := newTestController(newScriptedOperator(), DefaultSettings())
		child, calls := countingFunc("Child")
		root := NewSequence("Root", child)

		_, err := c.Fly(ctx, testPilot, root, nil)
		require.NoError(t, err)
		assert.Zero(t, *calls)
		assert.Equal(t, StatusReady, child.Status())
		assert.Equal(t, []Option{ActionQuit}, options(root))
	})

	t.Run("cancelled during an attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sink := &contextSink{}
		op := newScriptedOperator()
		op.interactive = false
		c := New("TestRaspador", op, flightlog.New(sink), DefaultSettings())
		op.controller = c

		calls := 0
		child := NewFunc("Child", func(ctx context.Context, _ *Sortie) error {
			calls++
			cancel()
			return ctx.Err()
		})
		root := NewSequence("Root", child)

		_, err := c.Fly(ctx, testPilot, root, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, calls, "no retry once the context is done")
		assert.Equal(t, []Option{ModeAutomatic, ActionQuit}, options(child))
		assert.Equal(t, StatusSkipped, root.Status())
		require.Equal(t, 3, c.Log.Len())
		assert.Equal(t, []error{nil, nil, nil}, sink.errs, "sinks get a live context")
	})
}

// contextSink records the context state each row arrives with.
type contextSink struct{ errs []error }

func (s *contextSink) Append(ctx context.Context, _ flightlog.Row) error {
	s.errs = append(s.errs, ctx.Err())
	return ctx.Err()
}

func TestBuiltinsAreManeuvers(t *testing.T) {
	f := NewFunc("Step", nil)
	for _, m := range []Maneuver{
		NewSequence("Seq", f), NewInteractQueue(), NewBreak(f), &Interact{}, &QuitManeuver{}, f,
	} {
		require.NotNil(t, m.Base(), NameOf(m))
		assert.Equal(t, StatusReady, m.Base().Status(), NameOf(m))
		assert.NotEmpty(t, m.Base().ID(), NameOf(m))
	}
}

func TestMonitorSnapshotsEveryIteration(t *testing.T) {
	settings := DefaultSettings()
	mon := &countingMonitor{}
	settings.Monitor = mon
	c := newTestController(newScriptedOperator(), settings)
	child, _ := countingFunc("Child")

	_, err := c.Fly(context.Background(), testPilot, NewSequence("Root", child), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, mon.n)
}

type countingMonitor struct{ n int }

func (m *countingMonitor) Snapshot(*Pilot, *flightlog.Log) { m.n++ }
