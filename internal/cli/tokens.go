package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"leadbot/pkg/registry"
)

func newValidateTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-tokens <file>",
		Short: "Check a token-table file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := registry.LoadTokenTables(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", tables.Version)
			fmt.Fprintf(out, "confirm: %d\n", len(tables.Confirm))
			fmt.Fprintf(out, "cancel: %d\n", len(tables.Cancel))
			fmt.Fprintf(out, "reject: %d\n", len(tables.Reject))
			fmt.Fprintf(out, "correctionConfirm: %d\n", len(tables.CorrectionConfirm))

			kinds := make([]string, 0, len(tables.Inquiry))
			for kind := range tables.Inquiry {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(out, "inquiry.%s: %d\n", kind, len(tables.Inquiry[kind]))
			}
			return nil
		},
	}
}

func init() {
	cmd := newValidateTokensCmd()
	cmd.SilenceUsage = true
	RootCmd.AddCommand(cmd)
}
