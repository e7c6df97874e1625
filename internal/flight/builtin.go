package flight

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sequence flies its steps in order. With Required set, a step that did not
// complete stops the sequence.
type Sequence struct {
	Frame
	Label    string
	Steps    []Maneuver
	Required bool
	Pause    time.Duration

	index int
}

func NewSequence(label string, steps ...Maneuver) *Sequence {
	return &Sequence{Label: label, Steps: steps, Required: true}
}

func (s *Sequence) Name() string {
	if s.Label == "" {
		return "Sequence"
	}
	return s.Label
}

func (s *Sequence) Instruction() string {
	return fmt.Sprintf("perform %s %d/%d", s.Name(), s.index, len(s.Steps))
}

func (s *Sequence) Detail() string {
	var sb strings.Builder
	sb.WriteString("Steps:")
	for i, m := range s.Steps {
		fmt.Fprintf(&sb, "\n %d. %s", i+1, DetailOf(m))
	}
	return sb.String()
}

func (s *Sequence) Empty() bool { return len(s.Steps) == 0 }

func (s *Sequence) Append(m Maneuver) { s.Steps = append(s.Steps, m) }

func (s *Sequence) Attempt(ctx context.Context, so *Sortie) error {
	for s.index = 0; s.index < len(s.Steps); s.index++ {
		step, err := so.Fly(ctx, s.Steps[s.index])
		if err != nil {
			return err
		}
		if s.Required {
			if err := Require(step); err != nil {
				return err
			}
		}
		if s.Pause > 0 && s.index < len(s.Steps)-1 {
			t := time.NewTimer(s.Pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}

// InteractQueue is the non-required sequence an interaction leaves behind.
type InteractQueue struct {
	Sequence
}

func NewInteractQueue() *InteractQueue {
	return &InteractQueue{Sequence: Sequence{Label: "InteractQueue"}}
}

// Break pauses the operator after another maneuver finished.
type Break struct {
	Frame
	After Maneuver
}

func NewBreak(after Maneuver) *Break { return &Break{After: after} }

func (b *Break) Name() string { return "Break" }

func (b *Break) Instruction() string {
	return fmt.Sprintf("continue when ready after %s (%s)", NameOf(b.After), InstructionOf(b.After))
}

func (b *Break) Options() []Option {
	return Without(DefaultOptions(), ModeStepNext)
}

func (b *Break) Attempt(context.Context, *Sortie) error { return nil }

// Interact asks for an interaction while the operator is interactive, until
// it has errored as many times as the retry budget allows.
type Interact struct {
	Frame
}

func (i *Interact) Attempt(_ context.Context, s *Sortie) error {
	c := s.Controller()
	if !c.Operator.Interactive() {
		return nil
	}
	if c.Retry < 0 || i.ErrorCount() < c.Retry {
		return NewSignal(SignalInteract, i)
	}
	return nil
}

// QuitManeuver ends the run when flown.
type QuitManeuver struct {
	Frame
}

func (q *QuitManeuver) Name() string { return "Quit" }

func (q *QuitManeuver) Attempt(context.Context, *Sortie) error {
	return NewSignal(SignalQuit, q)
}

// Func adapts a function to a Maneuver.
type Func struct {
	Frame
	Label string
	Run   func(ctx context.Context, s *Sortie) error
	// Choices overrides the default options when set.
	Choices []Option
}

func NewFunc(label string, run func(ctx context.Context, s *Sortie) error) *Func {
	return &Func{Label: label, Run: run}
}

func (f *Func) Name() string { return f.Label }

func (f *Func) Options() []Option {
	if len(f.Choices) > 0 {
		return f.Choices
	}
	return DefaultOptions()
}

func (f *Func) Attempt(ctx context.Context, s *Sortie) error {
	if f.Run == nil {
		return nil
	}
	return f.Run(ctx, s)
}
