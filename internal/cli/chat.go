package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	var sessionKey string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the engine one line at a time",
		Long:  "Reads messages from stdin and prints each reply. An empty line or EOF ends the session.",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := openApp(cmd.Context())
			if err != nil {
				exitErr("open app", err)
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					return
				}
				resp, err := a.Engine.HandleMessage(cmd.Context(), sessionKey, line)
				if err != nil {
					exitErr("turn", err)
				}
				fmt.Fprintln(out, resp.ResponseText)
				if verbose {
					data, _ := json.MarshalIndent(resp, "", "  ")
					fmt.Fprintln(out, string(data))
				}
				fmt.Fprint(out, "> ")
			}
		},
	}
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "cli-session", "Session key, usually a phone number")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the full turn response as JSON")
	RootCmd.AddCommand(cmd)
}
