package operator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xyla-io/raspador/internal/flight"
)

const debuggerHelp = `stack     show the mission stack
error     show the error being inspected
mission   show the maneuver being flown and its trajectory
log       show the latest flight log rows
cancel    cancel the mission; the run quits when the debugger is left
continue  leave the debugger (c)
quit      leave the debugger and quit the run (q)`

// debug is a small inspection REPL. It returns flight.ErrDebuggerQuit when
// the operator quits.
func (c *Console) debug(ctx context.Context, s *flight.Session, cause error) error {
	if !c.Interactive() {
		return nil
	}
	c.PresentMessage(hintStyle.Render("Debugger. Type help for commands."))
	for {
		answer, err := c.readLine(ctx, "(debug) ")
		switch {
		case errors.Is(err, errPromptTimeout):
			return nil
		case err != nil:
			return err
		}
		switch strings.ToLower(answer) {
		case "", "help", "h", "?":
			c.PresentMessage(debuggerHelp)
		case "stack", "where", "w":
			c.PresentMessage(s.Controller.MissionDescription(s.Pilot, s.Mission, s.Maneuver, false))
		case "error", "e":
			if cause == nil {
				c.PresentMessage("No error.")
			} else {
				c.PresentError(cause)
			}
		case "mission", "m":
			c.PresentMessage(trajectory(s.Maneuver))
		case "log", "l":
			c.presentLog(s.Log())
		case "cancel":
			if err := s.CancelMission(); err != nil {
				c.PresentError(err)
			} else {
				c.PresentMessage("Mission cancelled.")
			}
		case "continue", "c":
			return nil
		case "quit", "q":
			return flight.ErrDebuggerQuit
		default:
			c.PresentMessage(fmt.Sprintf("Unknown command %q.", answer))
		}
	}
}

func trajectory(m flight.Maneuver) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", flight.NameOf(m), flight.DetailOf(m))
	for i, p := range m.Base().Trajectory() {
		fmt.Fprintf(&sb, "\n %d. %s", i+1, p.Description())
	}
	return sb.String()
}
