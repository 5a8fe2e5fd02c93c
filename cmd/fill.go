// -- cmd/fill.go --
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/macpilot-cli/internal/input"
)

func newFillCommand() *cobra.Command {
	var (
		selector  string
		value     string
		window    int
		tab       int
		method    string
		skipClear bool
		secret    bool
	)

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill an input field, falling back from paste to typing to JS injection.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()

			res := comps.Filler.Fill(cmd.Context(), input.FillRequest{
				Selector:    selector,
				Value:       value,
				WindowIndex: window,
				TabIndex:    tab,
				Method:      input.FillMethod(method),
				SkipClear:   skipClear,
				Secret:      secret,
			})
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if res.IsFailure() {
				return errors.New(res.Error())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "CSS selector of the input element")
	cmd.Flags().StringVar(&value, "value", "", "value to enter")
	cmd.Flags().IntVarP(&window, "window", "w", 0, "browser window index")
	cmd.Flags().IntVarP(&tab, "tab", "t", 0, "tab index within the window")
	cmd.Flags().StringVar(&method, "method", string(input.MethodAuto), "fill method: auto, paste, type or js")
	cmd.Flags().BoolVar(&skipClear, "no-clear", false, "do not clear the field before input")
	cmd.Flags().BoolVar(&secret, "secret", false, "mask the value in logs and output")
	_ = cmd.MarkFlagRequired("selector")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func init() {
	rootCmd.AddCommand(newFillCommand())
}
