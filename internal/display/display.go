// Package display renders plans, flight logs and reports as plain text.
package display

import (
	"fmt"
	"strings"

	"github.com/xyla-io/raspador/internal/flightlog"
)

const rule = "--------------------------------------------------"

// FormatFlightLog lists rows one per line, numbered from first.
func FormatFlightLog(rows []flightlog.Row, first int) string {
	if len(rows) == 0 {
		return "Flight log is empty."
	}
	var sb strings.Builder
	for i, r := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d %s = %s", first+i, r.Path(), r.Option)
		switch {
		case r.Error != "":
			sb.WriteString(" - " + r.Error)
		case r.Result != "":
			sb.WriteString(" : " + r.Result)
		}
	}
	return sb.String()
}

// FormatReport renders the top maneuvers and top errors reports.
func FormatReport(rows []flightlog.Row) string {
	var sb strings.Builder
	sb.WriteString("Top maneuvers:\n")
	sb.WriteString(rule + "\n")
	maneuvers := flightlog.TopManeuvers(rows)
	if len(maneuvers) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, m := range maneuvers {
		result := m.Result
		if result == "" {
			result = "-"
		}
		fmt.Fprintf(&sb, "  %-30s %-24s %-12s %5d\n", truncate(m.Maneuver, 30), m.Option, result, m.Count)
	}

	sb.WriteString("Top errors:\n")
	sb.WriteString(rule + "\n")
	errs := flightlog.TopErrors(rows)
	if len(errs) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, e := range errs {
		fmt.Fprintf(&sb, "  %-24s %-30s %5d\n", e.Error, truncate(e.Maneuver, 30), e.Count)
	}
	sb.WriteString(rule)
	return sb.String()
}

func truncate(s string, limit int) string {
	if limit >= 0 && len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
