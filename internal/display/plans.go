package display

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xyla-io/raspador/internal/plan"
)

const maxPayloadValueLength = 100

func FormatPlansCatalog(file string, plans []plan.NamedPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d plan(s) in %s:\n", len(plans), file)
	for i, p := range plans {
		stages, actions := p.Plan.Count()
		fmt.Fprintf(&sb, "  %2d. %s  (stages=%d, actions=%d, risky=%v)\n",
			i+1, p.Name, stages, actions, plan.IsRisky(p.Plan))
	}
	return sb.String()
}

// FormatPlan truncates long payload values for the terminal.
func FormatPlan(p *plan.Plan) string {
	return formatPlanInternal(p, maxPayloadValueLength)
}

// FormatPlanFull keeps every payload value whole, for the log file.
func FormatPlanFull(p *plan.Plan) string {
	return formatPlanInternal(p, -1)
}

func formatPlanInternal(p *plan.Plan, limit int) string {
	var sb strings.Builder
	sb.WriteString("Flight plan:\n")
	sb.WriteString(rule + "\n")
	for _, stage := range p.Stages {
		fmt.Fprintf(&sb, "Stage %d:\n", stage.Stage)
		for _, action := range stage.Actions {
			fmt.Fprintf(&sb, "  - Action: %s (ID: %s)\n", action.Action, action.ID)
			if len(action.Options) > 0 {
				fmt.Fprintf(&sb, "    Options: %s\n", strings.Join(action.Options, ", "))
			}
			if len(action.Payload) == 0 {
				continue
			}
			sb.WriteString("    Payload:\n")
			for _, key := range slices.Sorted(maps.Keys(action.Payload)) {
				fmt.Fprintf(&sb, "      %s: %s\n", key, formatValueForDisplay(action.Payload[key], limit))
			}
		}
	}
	sb.WriteString(rule)
	return sb.String()
}

// formatValueForDisplay keeps a value on one line; limit < 0 means no limit.
func formatValueForDisplay(value any, limit int) string {
	s := strings.ReplaceAll(fmt.Sprintf("%v", value), "\n", "\\n")
	return truncate(s, limit)
}
