package flight

import (
	"fmt"
	"slices"
	"strings"
)

// MissionDescription is the breadcrumb shown before and after each attempt,
// one line per level. With reverse set the innermost level comes first.
func (c *Controller) MissionDescription(pilot *Pilot, mission Mission, m Maneuver, reverse bool) string {
	levels := []string{c.Name, pilotName(pilot)}
	for _, a := range mission {
		levels = append(levels, maneuverDescription(a))
	}
	if m != nil {
		status := string(m.Base().Status())
		if reverse {
			levels = append(levels, fmt.Sprintf("%s: ...%s", maneuverDescription(m), status))
		} else {
			levels = append(levels, fmt.Sprintf("%s: %s...", maneuverDescription(m), status))
		}
	}
	lines := make([]string, len(levels))
	for i, level := range levels {
		lines[i] = strings.Repeat("-", i+1) + "> " + level
	}
	if reverse {
		slices.Reverse(lines)
	}
	return strings.Join(lines, "\n")
}

func maneuverDescription(m Maneuver) string {
	d := InstructionOf(m)
	if p := m.Base().Position(); p != nil {
		d += " <" + p.Option.Label() + ">"
	}
	return d
}

func (c *Controller) path(pilot *Pilot, mission Mission, m Maneuver) string {
	parts := append([]string{c.Name, pilotName(pilot)}, mission.Names()...)
	if m != nil {
		parts = append(parts, NameOf(m))
	}
	return strings.Join(parts, ".")
}

func (c *Controller) breakDescription(pilot *Pilot, m Maneuver, mission Mission) string {
	detail := "(" + InstructionOf(m)
	if p := m.Base().Position(); p != nil {
		detail += " after " + p.Description()
	}
	return fmt.Sprintf("Breaking at %s\n%s)", c.path(pilot, mission, m), detail)
}

func (c *Controller) catchDescription(pilot *Pilot, m Maneuver, mission Mission, err error) string {
	return fmt.Sprintf("Caught %s at %s\n(%s)\nPostmortem environment.",
		ErrorName(err), c.path(pilot, mission, m), InstructionOf(m))
}
