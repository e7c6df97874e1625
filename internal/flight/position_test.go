package flight

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionLifecycle(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewPosition(ModeAutomatic)
	p.now = func() time.Time { return fixed }

	var invalid *InvalidPositionError
	require.ErrorAs(t, p.Stabilize(nil), &invalid)

	require.NoError(t, p.Enter())
	assert.True(t, p.Entered())
	assert.False(t, p.Stable())
	require.ErrorAs(t, p.Enter(), &invalid)

	require.NoError(t, p.Stabilize(nil))
	assert.True(t, p.StableTime.After(p.EntryTime), "same clock reading still orders stable after entry")
	assert.Equal(t, time.Nanosecond, p.Duration())
	require.ErrorAs(t, p.Stabilize(nil), &invalid)
}

func TestPositionDescription(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{name: "no error", want: "(A)utomatic"},
		{name: "signal", err: NewSignal(SignalSkipOver, nil), want: "(A)utomatic - SkipOver"},
		{name: "plain error", err: errors.New("boom"), want: "(A)utomatic - Error"},
		{name: "typed error", err: fmt.Errorf("wrapped: %w", &ManeuverRequiredError{Maneuver: "B"}), want: "(A)utomatic - ManeuverRequiredError"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPosition(ModeAutomatic)
			require.NoError(t, p.Enter())
			require.NoError(t, p.Stabilize(tc.err))
			assert.Equal(t, tc.want, p.Description())
		})
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestStatus(t *testing.T) {
	settle := func(option Option, err error) *Position {
		p := NewPosition(option)
		_ = p.Enter()
		_ = p.Stabilize(err)
		return p
	}

	testCases := []struct {
		name string
		last *Position
		want Status
	}{
		{name: "ready", want: StatusReady},
		{name: "in progress", last: func() *Position { p := NewPosition(ModeAutomatic); _ = p.Enter(); return p }(), want: StatusInProgress},
		{name: "completed by mode", last: settle(ModeManual, nil), want: StatusCompleted},
		{name: "completed by assumption", last: settle(ActionDone, nil), want: StatusCompleted},
		{name: "holding after interaction", last: settle(InteractLog, nil), want: StatusHolding},
		{name: "holding after repair", last: settle(ActionRepair, nil), want: StatusHolding},
		{name: "error", last: settle(ModeAutomatic, errors.New("boom")), want: StatusError},
		{name: "skipped", last: settle(ActionSkipOver, NewSignal(SignalSkipOver, nil)), want: StatusSkipped},
		{name: "quit counts as skipped", last: settle(ActionQuit, NewSignal(SignalQuit, nil)), want: StatusSkipped},
		{name: "interact is an error", last: settle(ModeAutomatic, NewSignal(SignalInteract, nil)), want: StatusError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var b Frame
			if tc.last != nil {
				b.push(tc.last)
			}
			assert.Equal(t, tc.want, b.Status())
		})
	}
}
