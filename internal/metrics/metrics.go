// Package metrics summarizes a mission's flight log by stage and action.
package metrics

import (
	"strings"
	"time"

	"github.com/xyla-io/raspador/internal/flightlog"
)

type ActionMetrics struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Attempts   int       `json:"attempts"`
	Errors     int       `json:"errors"`
	Success    bool      `json:"success"`
	Result     string    `json:"result,omitempty"`
	Err        string    `json:"err,omitempty"`
}

type StageMetrics struct {
	Stage      string          `json:"stage"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	DurationMs int64           `json:"duration_ms"`
	Actions    []ActionMetrics `json:"actions"`
}

type MissionMetrics struct {
	MissionID  string         `json:"mission_id"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	DurationMs int64          `json:"duration_ms"`
	Succeeded  bool           `json:"succeeded"`
	Result     string         `json:"result,omitempty"`
	Stages     []StageMetrics `json:"stages"`
}

// Compute derived fields for a stage.
func (s *StageMetrics) Finalize() {
	s.DurationMs = s.End.Sub(s.Start).Milliseconds()
}

// FromRows summarizes the rows of one mission flown from its root maneuver.
// Rows one level below the root are stages; rows two levels below are their
// actions. Deeper rows, such as maneuvers queued by scripts, count only
// toward the mission span.
func FromRows(missionID string, rows []flightlog.Row) *MissionMetrics {
	mm := &MissionMetrics{MissionID: missionID}
	var (
		stages  []*StageMetrics
		byStage = map[string]*StageMetrics{}
		actions = map[string]*ActionMetrics{}
		order   = map[string][]string{}
	)
	for _, r := range rows {
		if mm.Start.IsZero() || r.EntryTime.Before(mm.Start) {
			mm.Start = r.EntryTime
		}
		if r.StableTime.After(mm.End) {
			mm.End = r.StableTime
		}
		ids := splitIDs(r.MissionID)
		switch len(ids) {
		case 0:
			mm.Result = r.Result
			mm.Succeeded = r.Result == flightlog.ResultCompleted
		case 1:
			s, ok := byStage[r.ManeuverID]
			if !ok {
				s = &StageMetrics{Stage: r.Maneuver, Start: r.EntryTime}
				byStage[r.ManeuverID] = s
				stages = append(stages, s)
			}
			s.End = r.StableTime
		case 2:
			a, ok := actions[r.ManeuverID]
			if !ok {
				a = &ActionMetrics{ID: r.ManeuverID, Action: r.Maneuver, Start: r.EntryTime}
				actions[r.ManeuverID] = a
				order[ids[1]] = append(order[ids[1]], r.ManeuverID)
			}
			a.End = r.StableTime
			a.Attempts++
			a.Result = r.Result
			a.Success = r.Result == flightlog.ResultCompleted
			if r.Error != "" {
				a.Errors++
				a.Err = r.Error
			}
		}
	}
	mm.DurationMs = mm.End.Sub(mm.Start).Milliseconds()

	for id, s := range byStage {
		for _, actionID := range order[id] {
			a := actions[actionID]
			a.DurationMs = a.End.Sub(a.Start).Milliseconds()
			s.Actions = append(s.Actions, *a)
		}
		s.Finalize()
	}
	for _, s := range stages {
		mm.Stages = append(mm.Stages, *s)
	}
	return mm
}

func splitIDs(missionID string) []string {
	if missionID == "" {
		return nil
	}
	return strings.Split(missionID, ".")
}
