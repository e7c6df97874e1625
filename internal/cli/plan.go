package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xyla-io/raspador/internal/display"
	"github.com/xyla-io/raspador/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan <plans.json> [names...]",
	Short: "List the plans in a file and print the named ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plans, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, display.FormatPlansCatalog(args[0], plans))
		if len(args) == 1 {
			return nil
		}

		selected, missing := plan.SelectByNames(plans, args[1:])
		registry := plan.Builtin()
		for _, np := range selected {
			fmt.Fprintf(out, "\n%s\n%s", np.Name, display.FormatPlanFull(np.Plan))
			if err := registry.ValidatePlan(np.Plan); err != nil {
				fmt.Fprintf(out, "Invalid: %v\n", err)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("no plans named %v", missing)
		}
		return nil
	},
}
