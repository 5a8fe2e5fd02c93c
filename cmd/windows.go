// -- cmd/windows.go --
package cmd

import (
	"github.com/spf13/cobra"
)

func newWindowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List the browser's windows with their bounds and active tabs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()

			res := comps.Resolver.ListWindows(cmd.Context())
			if res.IsFailure() {
				return reportFailure(cmd, res)
			}
			return printJSON(cmd, res)
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newWindowsCommand())
}
