package display

import (
	"fmt"
	"strings"

	"github.com/xyla-io/raspador/internal/metrics"
)

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Flight metrics:\n")
	fmt.Fprintf(&sb, "- Total: %d ms  (success=%v)\n", mm.DurationMs, mm.Succeeded)
	for _, s := range mm.Stages {
		fmt.Fprintf(&sb, "  %s: %d ms\n", s.Stage, s.DurationMs)
		for _, a := range s.Actions {
			status := "ok"
			if !a.Success {
				status = strings.ToLower(a.Result)
				if status == "" {
					status = "err"
				}
			}
			fmt.Fprintf(&sb, "    * %-22s %5d ms  %2d attempt(s)  [%s]\n",
				truncate(a.Action, 22), a.DurationMs, a.Attempts, status)
		}
	}
	return sb.String()
}
