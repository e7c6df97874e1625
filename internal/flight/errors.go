package flight

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// SignalKind identifies a control-flow signal.
type SignalKind int

const (
	SignalSkipOver SignalKind = iota + 1
	SignalSkipUp
	SignalSkipToBreak
	SignalQuit
	SignalInteract
	SignalDidNotCompleteManually
)

var signalNames = map[SignalKind]string{
	SignalSkipOver:               "SkipOver",
	SignalSkipUp:                 "SkipUp",
	SignalSkipToBreak:            "SkipToBreak",
	SignalQuit:                   "Quit",
	SignalInteract:               "Interact",
	SignalDidNotCompleteManually: "DidNotCompleteManually",
}

func (k SignalKind) String() string {
	if name, ok := signalNames[k]; ok {
		return name
	}
	return "Signal"
}

// Skip reports whether a maneuver stopped by this signal counts as skipped.
func (k SignalKind) Skip() bool {
	switch k {
	case SignalSkipOver, SignalSkipUp, SignalSkipToBreak, SignalQuit:
		return true
	}
	return false
}

// Signal is a control transfer, not a failure. Match with errors.Is against
// the Err* sentinels, which ignore the originating maneuver.
type Signal struct {
	Kind     SignalKind
	Maneuver string
}

func (s *Signal) Error() string {
	if s.Maneuver == "" {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s at %s", s.Kind, s.Maneuver)
}

func (s *Signal) Is(target error) bool {
	t, ok := target.(*Signal)
	return ok && t.Kind == s.Kind && t.Maneuver == ""
}

var (
	ErrSkipOver               = &Signal{Kind: SignalSkipOver}
	ErrSkipUp                 = &Signal{Kind: SignalSkipUp}
	ErrSkipToBreak            = &Signal{Kind: SignalSkipToBreak}
	ErrQuit                   = &Signal{Kind: SignalQuit}
	ErrInteract               = &Signal{Kind: SignalInteract}
	ErrDidNotCompleteManually = &Signal{Kind: SignalDidNotCompleteManually}
)

// NewSignal builds a signal raised at maneuver m.
func NewSignal(kind SignalKind, m Maneuver) *Signal {
	s := &Signal{Kind: kind}
	if m != nil {
		s.Maneuver = NameOf(m)
	}
	return s
}

var (
	// ErrInterrupt is the operator pressing ctrl-c.
	ErrInterrupt = errors.New("interrupted")
	// ErrAbort is the operator hard-cancelling the run. It skips stabilization.
	ErrAbort = errors.New("aborted")
	// ErrDebuggerQuit leaves a postmortem session and quits.
	ErrDebuggerQuit = errors.New("debugger quit")
	// ErrNoOrdnance is returned when deploying an empty ordnance.
	ErrNoOrdnance = errors.New("no ordnance")
)

// AsSignal unwraps err to a Signal.
func AsSignal(err error) (*Signal, bool) {
	var s *Signal
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}

// IsSkip reports whether err is a skip-class signal.
func IsSkip(err error) bool {
	s, ok := AsSignal(err)
	return ok && s.Kind.Skip()
}

func isQuit(err error) bool {
	return errors.Is(err, ErrQuit) || errors.Is(err, ErrDebuggerQuit)
}

type InvalidManeuverError struct {
	Maneuver any
}

func (e *InvalidManeuverError) Error() string {
	return fmt.Sprintf("invalid maneuver %T", e.Maneuver)
}

type InvalidPositionError struct {
	Reason string
}

func (e *InvalidPositionError) Error() string {
	return "invalid position: " + e.Reason
}

type ManeuverRequiredError struct {
	Maneuver string
	Status   Status
}

func (e *ManeuverRequiredError) Error() string {
	return fmt.Sprintf("maneuver %s required but %s", e.Maneuver, strings.ToLower(string(e.Status)))
}

// ErrorName is the short type name recorded in the flight log.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	if s, ok := AsSignal(err); ok {
		return s.Kind.String()
	}
	switch {
	case errors.Is(err, ErrInterrupt):
		return "Interrupt"
	case errors.Is(err, ErrAbort):
		return "Abort"
	case errors.Is(err, ErrDebuggerQuit):
		return "DebuggerQuit"
	case errors.Is(err, ErrNoOrdnance):
		return "NoOrdnance"
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if name := typeName(e); !genericErrorTypes[name] {
			return name
		}
	}
	return "Error"
}

// Types produced by errors.New and fmt.Errorf say nothing about the failure.
var genericErrorTypes = map[string]bool{
	"errorString": true,
	"wrapError":   true,
	"wrapErrors":  true,
	"joinError":   true,
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
