package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdrtriage/xdrtriage/internal/triage"
)

// RegisterSweepCommands adds the combined forward+close workflow.
func RegisterSweepCommands(root *cobra.Command) {
	var (
		hours int
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Forward high/critical detail and close dangerous-IP incidents in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(fmt.Sprintf(
				"The sweep closes every open incident touching the dangerous-IP list in the last %dh.", hours)) {
				fmt.Println("Aborted.")
				return nil
			}

			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}

			result, err := rt.orch.Sweep(cmd.Context(), triage.ListOptions{HoursBack: hours})
			if err != nil {
				return err
			}

			fmt.Printf("Listed %d incident(s): forwarded %d, closed %d.\n",
				result.Listed, result.Forwarded, result.Closed)
			if result.Skipped > 0 {
				fmt.Printf("Skipped %d incident(s) after failures.\n", result.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 6, "how many hours back to look")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	root.AddCommand(cmd)
}
