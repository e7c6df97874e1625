// Package flightlog holds the append-only record of every attempt in a run.
package flightlog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xyla-io/raspador/internal/logger"
)

// Row is one stabilized position.
type Row struct {
	EntryTime   time.Time `json:"entry_time"`
	StableTime  time.Time `json:"stable_time"`
	Raspador    string    `json:"raspador"`
	Pilot       string    `json:"pilot"`
	Mission     string    `json:"mission"`
	Maneuver    string    `json:"maneuver"`
	Option      string    `json:"option"`
	Error       string    `json:"error"`
	Detail      string    `json:"detail"`
	Result      string    `json:"result"`
	Instruction string    `json:"instruction"`
	ID          string    `json:"id"`
	ManeuverID  string    `json:"maneuver_id"`
	MissionID   string    `json:"mission_id"`
}

// Path is the mission breadcrumb followed by the maneuver name.
func (r Row) Path() string {
	if r.Mission == "" {
		return r.Maneuver
	}
	return r.Mission + "." + r.Maneuver
}

// Sink receives each row after it is appended.
type Sink interface {
	Append(ctx context.Context, row Row) error
}

// Log is safe for concurrent readers; rows are never modified once appended.
type Log struct {
	mu    sync.RWMutex
	rows  []Row
	sinks []Sink
}

func New(sinks ...Sink) *Log {
	return &Log{sinks: sinks}
}

func (l *Log) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Append records row. Sink failures are logged and never returned: the
// in-memory log stays authoritative.
func (l *Log) Append(ctx context.Context, row Row) {
	l.mu.Lock()
	l.rows = append(l.rows, row)
	sinks := slices.Clone(l.sinks)
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Append(ctx, row); err != nil {
			logger.Log.Warnf("[FlightLog] Sink failed for row %s: %v", row.ID, err)
		}
	}
}

// Rows returns a copy of all rows.
func (l *Log) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.rows)
}

// Since returns rows appended after the first n.
func (l *Log) Since(n int) []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n >= len(l.rows) {
		return nil
	}
	return slices.Clone(l.rows[n:])
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Last is the most recently stabilized row.
func (l *Log) Last() (Row, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.rows) == 0 {
		return Row{}, false
	}
	last := l.rows[0]
	for _, r := range l.rows[1:] {
		if r.StableTime.After(last.StableTime) {
			last = r
		}
	}
	return last, true
}
