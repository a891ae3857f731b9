package cli

import (
	"github.com/spf13/cobra"

	"github.com/xdrtriage/xdrtriage/internal/classify"
	"github.com/xdrtriage/xdrtriage/internal/triage"
)

// RegisterReportCommands adds the read-only listing command.
func RegisterReportCommands(root *cobra.Command) {
	var (
		hours       int
		limit       int
		offset      int
		minSeverity string
		statuses    []string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List open incidents at or above a severity floor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSeverity("min-severity", minSeverity); err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}

			matched, err := rt.orch.Report(cmd.Context(), triage.ListOptions{
				HoursBack: hours,
				Limit:     limit,
				Offset:    offset,
				Statuses:  statuses,
			}, minSeverity)
			if err != nil {
				return err
			}

			printIncidentTable(matched)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 6, "how many hours back to look")
	cmd.Flags().IntVar(&limit, "limit", triage.DefaultLimit, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().StringVar(&minSeverity, "min-severity", classify.SeverityInformational, "severity floor")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "server-side status filter (repeatable)")

	root.AddCommand(cmd)
}
