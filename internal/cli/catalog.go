package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	index := &cobra.Command{
		Use:   "index-catalog",
		Short: "Rebuild the semantic search index from the catalog",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := openApp(cmd.Context())
			if err != nil {
				exitErr("open app", err)
			}
			defer a.Close()

			if a.Search == nil {
				exitErr("index-catalog", fmt.Errorf("semantic backend is %q", a.Config.Semantic.Backend))
			}
			n, err := a.IndexCatalog(cmd.Context())
			if err != nil {
				exitErr("index-catalog", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents\n", n)
		},
	}
	RootCmd.AddCommand(index)

	refresh := &cobra.Command{
		Use:   "refresh-cache",
		Short: "Drop cached catalog lookups and warm them again",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := openApp(cmd.Context())
			if err != nil {
				exitErr("open app", err)
			}
			defer a.Close()

			if err := a.Catalog.Invalidate(cmd.Context()); err != nil {
				exitErr("invalidate", err)
			}
			if err := a.Catalog.Warm(cmd.Context()); err != nil {
				exitErr("warm", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog cache refreshed")
		},
	}
	RootCmd.AddCommand(refresh)
}
