// -- cmd/click.go --
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
)

type targetFlags struct {
	selector string
	x, y     float64
	window   int
	tab      int
	offsetX  float64
	offsetY  float64
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.selector, "selector", "s", "", "CSS selector of the target element")
	cmd.Flags().Float64VarP(&f.x, "x", "x", 0, "viewport x coordinate (used when no selector)")
	cmd.Flags().Float64VarP(&f.y, "y", "y", 0, "viewport y coordinate (used when no selector)")
	cmd.Flags().IntVarP(&f.window, "window", "w", 0, "browser window index")
	cmd.Flags().IntVarP(&f.tab, "tab", "t", 0, "tab index within the window")
	cmd.Flags().Float64Var(&f.offsetX, "offset-x", 0, "horizontal offset applied to the resolved screen point")
	cmd.Flags().Float64Var(&f.offsetY, "offset-y", 0, "vertical offset applied to the resolved screen point")
}

func (f *targetFlags) target(requireUnique bool) screen.Target {
	return screen.Target{
		Selector:      f.selector,
		X:             f.x,
		Y:             f.y,
		WindowIndex:   f.window,
		TabIndex:      f.tab,
		OffsetX:       f.offsetX,
		OffsetY:       f.offsetY,
		RequireUnique: requireUnique,
	}
}

// clickResponse is the JSON envelope the click command prints.
type clickResponse struct {
	Target screen.Coordinate    `json:"target"`
	Result results.Result[bool] `json:"result"`
}

func newClickCommand() *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "click",
		Short: "Click an element (by selector) or a viewport coordinate.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()
			ctx := cmd.Context()

			coord := comps.Resolver.Resolve(ctx, flags.target(true))
			if coord.IsFailure() {
				return reportFailure(cmd, coord)
			}

			if flags.selector != "" {
				if vis := comps.Validator.Check(ctx, flags.selector, flags.tab, flags.window); vis.IsFailure() {
					return reportFailure(cmd, vis)
				}
			}

			res := comps.Driver.Click(ctx, flags.window, coord.Data)
			if err := printJSON(cmd, clickResponse{Target: coord.Data, Result: res}); err != nil {
				return err
			}
			if res.IsFailure() {
				return errors.New(res.Error())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// reportFailure prints a failed result envelope and converts it into a
// non-zero exit.
func reportFailure[T any](cmd *cobra.Command, res results.Result[T]) error {
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	return errors.New(res.Error())
}

func init() {
	rootCmd.AddCommand(newClickCommand())
}
