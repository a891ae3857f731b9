package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdrtriage/xdrtriage/internal/triage"
)

// RegisterForwardCommands adds the forward-on-severity command.
func RegisterForwardCommands(root *cobra.Command) {
	var (
		hours  int
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Forward high/critical incident detail to the collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}

			result, err := rt.orch.ForwardBySeverity(cmd.Context(), triage.ListOptions{
				HoursBack: hours,
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Listed %d incident(s).\n", result.Listed)
			for _, tier := range []string{"critical", "high"} {
				if n := result.Forwarded[tier]; n > 0 {
					fmt.Printf("Forwarded %d %s incident(s).\n", n, tier)
				}
			}
			if result.Skipped > 0 {
				fmt.Printf("Skipped %d incident(s) after failures.\n", result.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 6, "how many hours back to look")
	cmd.Flags().IntVar(&limit, "limit", triage.DefaultLimit, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")

	root.AddCommand(cmd)
}
