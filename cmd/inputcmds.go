// -- cmd/inputcmds.go --
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
)

func newMoveCommand() *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move the pointer to an element or viewport coordinate.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()
			ctx := cmd.Context()

			coord := comps.Resolver.Resolve(ctx, flags.target(false))
			if coord.IsFailure() {
				return reportFailure(cmd, coord)
			}
			return report(cmd, comps.Driver.Move(ctx, flags.window, coord.Data))
		},
	}
	flags.register(cmd)
	return cmd
}

func newDragCommand() *cobra.Command {
	var (
		flags targetFlags
		toX   float64
		toY   float64
	)

	cmd := &cobra.Command{
		Use:   "drag",
		Short: "Drag from one viewport coordinate to another.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()
			ctx := cmd.Context()

			from := comps.Resolver.Resolve(ctx, flags.target(true))
			if from.IsFailure() {
				return reportFailure(cmd, from)
			}
			to := comps.Resolver.Resolve(ctx, screen.Target{
				X: toX, Y: toY,
				WindowIndex: flags.window, TabIndex: flags.tab,
			})
			if to.IsFailure() {
				return reportFailure(cmd, to)
			}
			return report(cmd, comps.Driver.Drag(ctx, flags.window, from.Data, to.Data))
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&toX, "to-x", 0, "viewport x coordinate of the drop point")
	cmd.Flags().Float64Var(&toY, "to-y", 0, "viewport y coordinate of the drop point")
	_ = cmd.MarkFlagRequired("to-x")
	_ = cmd.MarkFlagRequired("to-y")
	return cmd
}

func newTypeCommand() *cobra.Command {
	var (
		window int
		text   string
	)

	cmd := &cobra.Command{
		Use:   "type",
		Short: "Type text into the focused element.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()
			return report(cmd, comps.Driver.Type(cmd.Context(), window, text, text))
		},
	}
	cmd.Flags().IntVarP(&window, "window", "w", 0, "browser window index")
	cmd.Flags().StringVar(&text, "text", "", "text to type")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newKeyPressCommand() *cobra.Command {
	var (
		window int
		keys   []string
	)

	cmd := &cobra.Command{
		Use:   "keypress",
		Short: "Press a key or key combo, e.g. --key cmd --key a.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()
			return report(cmd, comps.Driver.KeyPress(cmd.Context(), window, keys...))
		},
	}
	cmd.Flags().IntVarP(&window, "window", "w", 0, "browser window index")
	cmd.Flags().StringArrayVar(&keys, "key", nil, "key to press; repeat for combos")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// report prints a result envelope and maps failure onto the exit code.
func report(cmd *cobra.Command, res results.Result[bool]) error {
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	if res.IsFailure() {
		return errors.New(res.Error())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newMoveCommand())
	rootCmd.AddCommand(newDragCommand())
	rootCmd.AddCommand(newTypeCommand())
	rootCmd.AddCommand(newKeyPressCommand())
}
