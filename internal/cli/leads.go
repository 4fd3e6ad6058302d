package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "retry-leads",
		Short: "Record leads that previously failed to reach the database",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := openApp(cmd.Context())
			if err != nil {
				exitErr("open app", err)
			}
			defer a.Close()

			n, err := a.Engine.RetryPendingLeads(cmd.Context())
			if err != nil {
				exitErr("retry-leads", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d pending leads\n", n)
		},
	}
	RootCmd.AddCommand(cmd)
}
