package supervisor

import (
	"time"

	"github.com/xyla-io/raspador/internal/plan"
)

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Mission is one named plan flown from its root maneuver.
type Mission struct {
	ID    string
	Name  string
	State string
	Plan  *plan.Plan
	Start time.Time
	End   time.Time
	// FirstRow and LastRow bound the mission's rows in the flight log.
	FirstRow int
	LastRow  int
}
