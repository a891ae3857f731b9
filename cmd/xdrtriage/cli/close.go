package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdrtriage/xdrtriage/internal/triage"
)

// RegisterCloseCommands adds the bulk-close command group. Both variants
// require an explicit confirmation before touching any ticket.
func RegisterCloseCommands(root *cobra.Command) {
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Bulk-annotate and close tickets by policy",
	}

	closeCmd.AddCommand(newCloseSeverityCmd())
	closeCmd.AddCommand(newCloseIPCmd())

	root.AddCommand(closeCmd)
}

func newCloseSeverityCmd() *cobra.Command {
	var (
		hours       int
		maxSeverity string
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "severity",
		Short: "Close open incidents at or below a severity ceiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSeverity("max-severity", maxSeverity); err != nil {
				return err
			}

			if !yes && !confirm(fmt.Sprintf(
				"About to comment on and close every open incident of severity <= %s in the last %dh.", maxSeverity, hours)) {
				fmt.Println("Aborted.")
				return nil
			}

			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}

			result, err := rt.orch.CloseBySeverity(cmd.Context(), triage.ListOptions{HoursBack: hours}, maxSeverity)
			if err != nil {
				return err
			}
			printCloseResult(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 6, "how many hours back to look")
	cmd.Flags().StringVar(&maxSeverity, "max-severity", "", "severity ceiling (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	cmd.MarkFlagRequired("max-severity")

	return cmd
}

func newCloseIPCmd() *cobra.Command {
	var (
		hours int
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "ip",
		Short: "Close open incidents touching the dangerous-IP list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(fmt.Sprintf(
				"About to comment on and close every open incident touching the dangerous-IP list in the last %dh.", hours)) {
				fmt.Println("Aborted.")
				return nil
			}

			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if len(rt.cfg.Triage.DangerousIPs) == 0 {
				return fmt.Errorf("no dangerous IPs configured (triage.dangerous_ips)")
			}

			result, err := rt.orch.CloseByDangerousIP(cmd.Context(), triage.ListOptions{HoursBack: hours})
			if err != nil {
				return err
			}
			printCloseResult(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 6, "how many hours back to look")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	return cmd
}

func printCloseResult(result *triage.CloseResult) {
	fmt.Printf("Listed %d incident(s), %d matched policy, %d closed.\n",
		result.Listed, result.Matched, result.Closed)
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d incident(s) after failures; their tickets remain open.\n", result.Skipped)
	}
}
