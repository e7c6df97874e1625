package flight

import (
	"context"
	"reflect"
	"slices"
	"strings"
)

// Status is derived from a maneuver's last position.
type Status string

const (
	StatusReady      Status = "Ready"
	StatusInProgress Status = "In progress"
	StatusHolding    Status = "On hold"
	StatusCompleted  Status = "Completed"
	StatusError      Status = "Error"
	StatusSkipped    Status = "Skipped"
)

// Finished is true for completed and skipped maneuvers.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Maneuver is a unit of work the controller can fly. Attempt may fly child
// maneuvers through the sortie any number of times before returning; each
// child is flown to completion before Attempt resumes.
type Maneuver interface {
	Base() *Frame
	Attempt(ctx context.Context, s *Sortie) error
}

// Optional hooks a maneuver may implement.
type (
	Namer interface {
		Name() string
	}
	Instructor interface {
		Instruction() string
	}
	Optioner interface {
		Options() []Option
	}
	Detailer interface {
		Detail() string
	}
	// ManualAttempter replaces the default manual confirmation.
	ManualAttempter interface {
		AttemptManually(ctx context.Context, s *Sortie) error
	}
	// Aborter repairs the environment after err before a retry.
	Aborter interface {
		Abort(ctx context.Context, err error) error
	}
	// Clearer drops per-attempt scratch state.
	Clearer interface {
		ClearRun()
	}
)

// Frame carries identity and trajectory. Embed it to implement Maneuver.
type Frame struct {
	id         string
	trajectory []*Position
}

func (b *Frame) Base() *Frame { return b }

func (b *Frame) ID() string {
	if b.id == "" {
		b.id = NewID()
	}
	return b.id
}

// Trajectory returns the positions in attempt order.
func (b *Frame) Trajectory() []*Position {
	return slices.Clone(b.trajectory)
}

// Position is the last attempt, or nil.
func (b *Frame) Position() *Position {
	if len(b.trajectory) == 0 {
		return nil
	}
	return b.trajectory[len(b.trajectory)-1]
}

func (b *Frame) Status() Status {
	p := b.Position()
	switch {
	case p == nil:
		return StatusReady
	case !p.Stable():
		return StatusInProgress
	case p.Err != nil:
		if IsSkip(p.Err) {
			return StatusSkipped
		}
		return StatusError
	case p.Option.IsMode() || p.Option == ActionDone:
		return StatusCompleted
	default:
		return StatusHolding
	}
}

// ErrorCount is the number of positions that ended with an error.
func (b *Frame) ErrorCount() int {
	n := 0
	for _, p := range b.trajectory {
		if p.Err != nil {
			n++
		}
	}
	return n
}

func (b *Frame) push(p *Position) {
	b.trajectory = append(b.trajectory, p)
}

// NameOf is the maneuver's Name, or its type name.
func NameOf(m Maneuver) string {
	if n, ok := m.(Namer); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func InstructionOf(m Maneuver) string {
	if i, ok := m.(Instructor); ok {
		return i.Instruction()
	}
	return "perform " + NameOf(m)
}

func OptionsOf(m Maneuver) []Option {
	if o, ok := m.(Optioner); ok {
		return o.Options()
	}
	return DefaultOptions()
}

func DetailOf(m Maneuver) string {
	if d, ok := m.(Detailer); ok {
		return d.Detail()
	}
	return InstructionOf(m)
}

// Require fails unless child completed. A skipped child passes its skip on
// as a skip-over of the caller.
func Require(child Maneuver) error {
	status := child.Base().Status()
	switch status {
	case StatusCompleted:
		return nil
	case StatusSkipped:
		return NewSignal(SignalSkipOver, child)
	}
	return &ManeuverRequiredError{Maneuver: NameOf(child), Status: status}
}

// Mission is the chain of ancestors being flown, outermost first.
type Mission []Maneuver

// With returns a new mission extended by m; the receiver is not modified.
func (ms Mission) With(m Maneuver) Mission {
	out := make(Mission, len(ms), len(ms)+1)
	copy(out, ms)
	return append(out, m)
}

func (ms Mission) Names() []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = NameOf(m)
	}
	return out
}

func (ms Mission) IDs() []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Base().ID()
	}
	return out
}

// Breadcrumb joins ancestor names with dots.
func (ms Mission) Breadcrumb() string {
	return strings.Join(ms.Names(), ".")
}
