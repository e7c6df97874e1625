package operator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xyla-io/raspador/internal/display"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/logger"
	"github.com/xyla-io/raspador/internal/script"
	"github.com/xyla-io/raspador/internal/snapshot"
)

const logViewRows = 20

// Interact runs the session for kind. Errors a session cannot recover from
// are presented and the maneuver stays on hold.
func (c *Console) Interact(ctx context.Context, kind flight.Option, s *flight.Session) error {
	var err error
	switch kind {
	case flight.InteractHTML:
		err = c.viewHTML(ctx, s)
	case flight.InteractImage:
		err = c.captureImage(ctx, s)
	case flight.InteractInspect:
		c.inspect(s)
	case flight.InteractScript:
		err = c.runScript(ctx, s)
	case flight.InteractDebugger:
		return c.debug(ctx, s, s.Cause)
	case flight.InteractLog:
		c.presentLog(s.Log())
	default:
		return fmt.Errorf("unknown interaction %s", kind)
	}
	if errors.Is(err, flight.ErrInterrupt) || errors.Is(err, flight.ErrAbort) {
		return err
	}
	if err != nil {
		logger.Log.Warnf("[Console] %s failed: %v", kind.Label(), err)
		c.PresentError(err)
	}
	return nil
}

// Postmortem opens the debugger on a failed attempt.
func (c *Console) Postmortem(ctx context.Context, s *flight.Session, cause error) error {
	return c.debug(ctx, s, cause)
}

func (c *Console) frameName(s *flight.Session) string {
	return flightlog.FrameFileName(s.Log(), time.Now())
}

func (c *Console) viewHTML(ctx context.Context, s *flight.Session) error {
	if s.Pilot == nil || s.Pilot.Browser == nil {
		return errors.New("no browser to view")
	}
	path, err := snapshot.SaveSource(ctx, s.Pilot.Browser, c.OutputDir, c.frameName(s))
	if err != nil {
		return err
	}
	c.PresentMessage("Saved page source to " + path)
	if !c.OpenPages {
		return nil
	}
	return openFile(c.Viewer, path)
}

func (c *Console) captureImage(ctx context.Context, s *flight.Session) error {
	if s.Pilot == nil || s.Pilot.Browser == nil {
		return errors.New("no browser to capture")
	}
	files, err := snapshot.Capture(ctx, s.Pilot.Browser, c.OutputDir, c.frameName(s))
	if err != nil {
		return err
	}
	if files.Image == "" {
		c.PresentMessage("The page could not be captured.")
	} else {
		c.PresentMessage("Saved screenshot to " + files.Image)
	}
	c.PresentMessage("Saved page source to " + files.HTML)
	return nil
}

func (c *Console) inspect(s *flight.Session) {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Session state") + "\n")
	fmt.Fprintf(&sb, "mission: %s\n", s.Mission.Breadcrumb())
	fmt.Fprintf(&sb, "maneuver: %s (%s)\n", flight.NameOf(s.Maneuver), s.Maneuver.Base().Status())
	fmt.Fprintf(&sb, "instruction: %s\n", flight.InstructionOf(s.Maneuver))
	fmt.Fprintf(&sb, "detail: %s\n", flight.DetailOf(s.Maneuver))
	if p := s.Maneuver.Base().Position(); p != nil {
		fmt.Fprintf(&sb, "position: %s\n", p.Description())
	}
	if s.Cause != nil {
		fmt.Fprintf(&sb, "last error: %s: %v\n", flight.ErrorName(s.Cause), s.Cause)
	}
	fmt.Fprintf(&sb, "attempts: %d, errors: %d, log rows: %d",
		len(s.Maneuver.Base().Trajectory()), s.Maneuver.Base().ErrorCount(), s.Log().Len())
	c.PresentMessage(sb.String())
}

func (c *Console) runScript(ctx context.Context, s *flight.Session) error {
	if c.Scripts == nil {
		return errors.New("scripts are not available")
	}
	paths, err := script.List(c.ScriptDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		c.PresentMessage("No scripts in " + c.ScriptDir)
		return nil
	}
	var sb strings.Builder
	for i, p := range paths {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, filepath.Base(p))
	}
	c.PresentMessage(strings.TrimRight(sb.String(), "\n"))

	answer, err := c.readLine(ctx, "Script number (empty to cancel): ")
	if errors.Is(err, errPromptTimeout) || answer == "" && err == nil {
		return nil
	}
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(paths) {
		return fmt.Errorf("no script number %q", answer)
	}
	source, err := os.ReadFile(paths[n-1])
	if err != nil {
		return err
	}
	c.PresentMessage(string(source))
	ok, err := c.PresentConfirmation(ctx, "Run "+filepath.Base(paths[n-1]), true)
	if err != nil || !ok {
		return err
	}
	before := s.Queued()
	if err := c.Scripts.Run(ctx, string(source), script.FromSession(s)); err != nil {
		return err
	}
	c.PresentMessage(fmt.Sprintf("Script queued %d maneuver(s).", s.Queued()-before))
	return nil
}

func (c *Console) presentLog(l *flightlog.Log) {
	start := max(l.Len()-logViewRows, 0)
	c.PresentMessage(display.FormatFlightLog(l.Since(start), start))
}
