package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// RegisterDetailCommands adds the single-incident inspection command.
func RegisterDetailCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "detail <incident-id>",
		Short: "Show the full record for one incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}

			detail, err := rt.orch.Detail(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			pretty, err := json.MarshalIndent(json.RawMessage(detail.Raw), "", "  ")
			if err != nil {
				return fmt.Errorf("rendering detail: %w", err)
			}
			fmt.Println(string(pretty))
			return nil
		},
	}

	root.AddCommand(cmd)
}
