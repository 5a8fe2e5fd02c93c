// -- cmd/eval.go --
package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

func newEvalCommand() *cobra.Command {
	var (
		window int
		tab    int
	)

	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Evaluate JavaScript in a browser tab and print the JSON result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()

			res := comps.Executor.EvalPage(cmd.Context(), args[0], tab, window,
				comps.Config.Automation().DefaultTimeout)
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if res.IsFailure() {
				return errors.New(res.Error())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&window, "window", "w", 0, "browser window index")
	cmd.Flags().IntVarP(&tab, "tab", "t", 0, "tab index within the window")
	return cmd
}

func init() {
	rootCmd.AddCommand(newEvalCommand())
}
