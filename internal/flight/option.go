package flight

import (
	"slices"
	"strings"
)

// Family groups control options.
type Family int

const (
	FamilyMode Family = iota + 1
	FamilyAction
	FamilyInteraction
)

func (f Family) String() string {
	switch f {
	case FamilyMode:
		return "mode"
	case FamilyAction:
		return "action"
	case FamilyInteraction:
		return "interaction"
	default:
		return "unknown"
	}
}

// Option is one operator choice. Options are comparable and the full set is
// closed: every valid Option is one of the package-level values below.
type Option struct {
	family Family
	value  string
	label  string
}

var (
	ModeAutomatic     = Option{FamilyMode, "a", "(A)utomatic"}
	ModeManual        = Option{FamilyMode, "m", "(M)anual"}
	ModeStepNext      = Option{FamilyMode, "n", "Step (N)ext"}
	ModeStepOver      = Option{FamilyMode, "o", "Step (O)ver"}
	ModeStepUp        = Option{FamilyMode, "u", "Step (U)p"}
	ModeStepToBreak   = Option{FamilyMode, "b", "Step to (B)reakpoint"}
	ActionSkipOver    = Option{FamilyAction, "so", "(S)kip (O)ver"}
	ActionSkipUp      = Option{FamilyAction, "su", "(S)kip (U)p"}
	ActionSkipToBreak = Option{FamilyAction, "sb", "(S)kip to (B)reakpoint"}
	ActionDone        = Option{FamilyAction, "c", "Assume it is done and (C)ontinue"}
	ActionRepair      = Option{FamilyAction, "e", "Repair (E)nvironment to retry"}
	ActionQuit        = Option{FamilyAction, "q", "(Q)uit"}
	InteractHTML      = Option{FamilyInteraction, "h", "(H)TML current page view"}
	InteractImage     = Option{FamilyInteraction, "i", "(I)mage of current page"}
	InteractInspect   = Option{FamilyInteraction, "p", "Ins(P)ect session state"}
	InteractScript    = Option{FamilyInteraction, "r", "(R)un script"}
	InteractDebugger  = Option{FamilyInteraction, "d", "(D)ebugger session"}
	InteractLog       = Option{FamilyInteraction, "l", "(L)og view"}
)

var (
	modes        = []Option{ModeAutomatic, ModeManual, ModeStepNext, ModeStepOver, ModeStepUp, ModeStepToBreak}
	actions      = []Option{ActionSkipOver, ActionSkipUp, ActionSkipToBreak, ActionDone, ActionRepair, ActionQuit}
	interactions = []Option{InteractHTML, InteractImage, InteractInspect, InteractScript, InteractDebugger, InteractLog}
)

// Modes returns the run modes in canonical order.
func Modes() []Option { return slices.Clone(modes) }

func Actions() []Option { return slices.Clone(actions) }

func Interactions() []Option { return slices.Clone(interactions) }

// DefaultOptions is every mode, every interaction and every action except
// repair, which a maneuver has to opt into.
func DefaultOptions() []Option {
	out := make([]Option, 0, len(modes)+len(interactions)+len(actions))
	out = append(out, modes...)
	out = append(out, interactions...)
	for _, a := range actions {
		if a != ActionRepair {
			out = append(out, a)
		}
	}
	return out
}

// Without returns options minus the excluded ones, order preserved.
func Without(options []Option, excluded ...Option) []Option {
	out := make([]Option, 0, len(options))
	for _, o := range options {
		if !slices.Contains(excluded, o) {
			out = append(out, o)
		}
	}
	return out
}

// ParseOption matches a typed value against the closed set, ignoring case.
func ParseOption(value string) (Option, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, set := range [][]Option{modes, actions, interactions} {
		for _, o := range set {
			if o.value == v {
				return o, true
			}
		}
	}
	return Option{}, false
}

func (o Option) Family() Family { return o.family }
func (o Option) Value() string  { return o.value }
func (o Option) Label() string  { return o.label }
func (o Option) String() string { return o.label }

func (o Option) IsZero() bool        { return o.family == 0 }
func (o Option) IsMode() bool        { return o.family == FamilyMode }
func (o Option) IsAction() bool      { return o.family == FamilyAction }
func (o Option) IsInteraction() bool { return o.family == FamilyInteraction }

// Order is the option's index within its family.
func (o Option) Order() int {
	switch o.family {
	case FamilyMode:
		return slices.Index(modes, o)
	case FamilyAction:
		return slices.Index(actions, o)
	case FamilyInteraction:
		return slices.Index(interactions, o)
	}
	return -1
}
