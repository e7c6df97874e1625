package flight

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Position is one attempt of a maneuver. Entry and stabilization each happen
// exactly once, in that order.
type Position struct {
	ID         string
	Option     Option
	EntryTime  time.Time
	StableTime time.Time
	Err        error

	now func() time.Time
}

func NewPosition(option Option) *Position {
	return &Position{ID: NewID(), Option: option, now: time.Now}
}

func (p *Position) Entered() bool { return !p.EntryTime.IsZero() }
func (p *Position) Stable() bool  { return !p.StableTime.IsZero() }

func (p *Position) Enter() error {
	if p.Entered() {
		return &InvalidPositionError{Reason: "already entered"}
	}
	p.EntryTime = p.clock()
	return nil
}

// Stabilize closes the attempt with its outcome. StableTime is always
// strictly after EntryTime.
func (p *Position) Stabilize(err error) error {
	if !p.Entered() {
		return &InvalidPositionError{Reason: "stabilized before entering"}
	}
	if p.Stable() {
		return &InvalidPositionError{Reason: "already stabilized"}
	}
	t := p.clock()
	if !t.After(p.EntryTime) {
		t = p.EntryTime.Add(time.Nanosecond)
	}
	p.Err = err
	p.StableTime = t
	return nil
}

func (p *Position) Duration() time.Duration {
	if !p.Stable() {
		return 0
	}
	return p.StableTime.Sub(p.EntryTime)
}

// Description is the option label, followed by the error name when there is one.
func (p *Position) Description() string {
	if p.Err == nil {
		return p.Option.Label()
	}
	return p.Option.Label() + " - " + ErrorName(p.Err)
}

func (p *Position) clock() time.Time {
	if p.now == nil {
		return time.Now().UTC()
	}
	return p.now().UTC()
}
