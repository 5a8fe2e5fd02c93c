// -- cmd/screenshot.go --
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/macpilot-cli/internal/capture"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

func newScreenshotCommand() *cobra.Command {
	var (
		window     int
		fullScreen bool
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture a browser window (or the full screen) under the configured byte budget.",
		RunE: func(cmd *cobra.Command, args []string) error {
			comps := newComponents()
			defer comps.Shutdown()
			ctx := cmd.Context()

			var res results.Result[capture.Encoded]
			if fullScreen {
				res = comps.Capturer.CaptureScreen(ctx)
			} else {
				bounds := comps.Resolver.WindowBounds(ctx, window)
				if bounds.IsFailure() {
					return reportFailure(cmd, bounds)
				}
				res = comps.Capturer.CaptureRegion(ctx, bounds.Data)
			}
			if res.IsFailure() {
				return reportFailure(cmd, res)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, res.Data.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outPath, err)
				}
				// Keep the envelope small once the image is on disk.
				res.Data.Base64 = ""
			}
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
	cmd.Flags().BoolVar(&fullScreen, "full-screen", false, "capture the entire display instead of one window")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the encoded image to this path instead of inlining base64")
	return cmd
}

func init() {
	rootCmd.AddCommand(newScreenshotCommand())
}
