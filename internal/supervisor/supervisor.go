// Package supervisor flies submitted plans as missions, one at a time,
// under a single flight controller.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xyla-io/raspador/internal/display"
	"github.com/xyla-io/raspador/internal/executor"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/logger"
	"github.com/xyla-io/raspador/internal/metrics"
	"github.com/xyla-io/raspador/internal/plan"
)

const queueSize = 100

type Config struct {
	Controller *flight.Controller
	Builder    *executor.Builder
	Pilot      *flight.Pilot
	// Timeout is the budget for every mission together. Zero is unlimited.
	Timeout time.Duration
	// AllowRisky flies risky plans without asking.
	AllowRisky bool
}

type Supervisor struct {
	Config

	missionQueue chan *Mission
	results      chan MissionResult
	wg           sync.WaitGroup

	curMu      sync.Mutex
	curMission *Mission
	curCancel  context.CancelFunc
}

func New(cfg Config) *Supervisor {
	s := &Supervisor{
		Config:       cfg,
		missionQueue: make(chan *Mission, queueSize),
		results:      make(chan MissionResult, queueSize),
	}
	if cfg.Controller != nil && cfg.Controller.Cancel == nil {
		cfg.Controller.Cancel = func() error {
			_, err := s.CancelMission("")
			return err
		}
	}
	return s
}

// Start flies queued missions until ctx ends or Close is called. The
// timeout budget starts now.
func (s *Supervisor) Start(ctx context.Context) {
	if s.Timeout > 0 {
		s.Controller.Deadline = time.Now().Add(s.Timeout)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.results)
		for mission := range s.missionQueue {
			if ctx.Err() != nil {
				mission.State = StatusCancelled
				s.results <- MissionResult{MissionID: mission.ID, Name: mission.Name, State: mission.State, Error: ctx.Err().Error()}
				continue
			}
			logger.Log.Infof("[Supervisor] Starting mission '%s' (ID: %s)", mission.Name, mission.ID)
			s.results <- s.runMission(ctx, mission)
		}
	}()
}

// Submit queues p and returns the mission id.
func (s *Supervisor) Submit(name string, p *plan.Plan) string {
	m := &Mission{ID: uuid.New().String()[:8], Name: name, State: StatusPending, Plan: p}
	s.missionQueue <- m
	return m.ID
}

// Results delivers one result per submitted mission and is closed after
// Close once the queue drains.
func (s *Supervisor) Results() <-chan MissionResult { return s.results }

// Close stops accepting missions and waits for the queue to drain.
func (s *Supervisor) Close() {
	close(s.missionQueue)
	s.wg.Wait()
}

// FlyAll starts the supervisor, submits plans in order and closes it. The
// returned channel must be drained; it closes after the last result.
func (s *Supervisor) FlyAll(ctx context.Context, plans []plan.NamedPlan) <-chan MissionResult {
	s.Start(ctx)
	go func() {
		defer s.Close()
		for _, p := range plans {
			id := s.Submit(p.Name, p.Plan)
			logger.Log.Debugf("[Supervisor] Submitted mission %s (%s)\n%s", id, p.Name, display.FormatPlanFull(p.Plan))
		}
	}()
	return s.Results()
}

// CancelMission cancels the running mission; an empty id matches any.
func (s *Supervisor) CancelMission(id string) (bool, error) {
	s.curMu.Lock()
	defer s.curMu.Unlock()

	if s.curMission == nil || s.curMission.State != StatusRunning {
		return false, fmt.Errorf("no mission is currently running")
	}
	if id != "" && !strings.EqualFold(s.curMission.ID, id) {
		return false, fmt.Errorf("mission %s is not running (current running: %s)", id, s.curMission.ID)
	}
	s.curCancel()
	return true, nil
}

func (s *Supervisor) runMission(ctx context.Context, m *Mission) MissionResult {
	result := MissionResult{MissionID: m.ID, Name: m.Name}
	finish := func(state string, err error) MissionResult {
		s.curMu.Lock()
		m.State, result.State = state, state
		s.curMu.Unlock()
		if err != nil && result.Error == "" {
			result.Error = err.Error()
		}
		logger.Log.Infof("[Supervisor] Mission '%s' %s (ID: %s)", m.Name, state, m.ID)
		return result
	}

	root, err := s.Builder.Build(m.Name, m.Plan)
	if err != nil {
		return finish(StatusFailed, err)
	}
	op := s.Controller.Operator
	if plan.IsRisky(m.Plan) && !s.AllowRisky {
		op.PresentMessage(display.FormatPlan(m.Plan))
		ok, err := op.PresentConfirmation(ctx, fmt.Sprintf("Plan %s changes files or runs scripts. Fly it", m.Name), false)
		if err != nil || !ok {
			return finish(StatusCancelled, errors.Join(errors.New("risky plan not confirmed"), err))
		}
	}

	missionCtx, cancel := context.WithCancel(ctx)
	s.curMu.Lock()
	m.State = StatusRunning
	s.curMission, s.curCancel = m, cancel
	s.curMu.Unlock()
	defer func() {
		cancel()
		s.curMu.Lock()
		s.curMission, s.curCancel = nil, nil
		s.curMu.Unlock()
	}()

	log := s.Controller.Log
	m.Start, m.FirstRow = time.Now(), log.Len()
	_, flyErr := s.Controller.Fly(missionCtx, s.Pilot, root, nil)
	m.End, m.LastRow = time.Now(), log.Len()

	rows := log.Since(m.FirstRow)
	result.Metrics = metrics.FromRows(m.ID, rows)
	result.Report = display.FormatReport(rows)
	if err := flightlog.CheckResults(rows); err != nil {
		if op.Interactive() {
			op.PresentError(err)
		} else {
			result.Error = err.Error()
		}
	}

	switch {
	case flyErr != nil && cancelled(flyErr):
		return finish(StatusCancelled, flyErr)
	case flyErr != nil:
		return finish(StatusFailed, flyErr)
	case missionCtx.Err() != nil:
		return finish(StatusCancelled, missionCtx.Err())
	case root.Status() == flight.StatusCompleted:
		return finish(StatusSucceeded, nil)
	case quit(root):
		return finish(StatusCancelled, flight.ErrQuit)
	}
	return finish(StatusFailed, fmt.Errorf("mission ended %s", strings.ToLower(string(root.Status()))))
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, flight.ErrAbort) ||
		errors.Is(err, flight.ErrInterrupt) || errors.Is(err, flight.ErrDebuggerQuit)
}

func quit(m flight.Maneuver) bool {
	p := m.Base().Position()
	return p != nil && errors.Is(p.Err, flight.ErrQuit)
}
