// -- cmd/batch.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/macpilot-cli/internal/engine"
	"github.com/xkilldash9x/macpilot-cli/internal/input"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
	"github.com/xkilldash9x/macpilot-cli/internal/service"
)

// batchEntry is one operation from a batch file. Type selects the action and
// decides which of the remaining fields matter.
type batchEntry struct {
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type"`
	Script   string   `json:"script,omitempty"`
	Selector string   `json:"selector,omitempty"`
	X        float64  `json:"x,omitempty"`
	Y        float64  `json:"y,omitempty"`
	Window   int      `json:"window,omitempty"`
	Tab      int      `json:"tab,omitempty"`
	Value    string   `json:"value,omitempty"`
	Secret   bool     `json:"secret,omitempty"`
	Keys     []string `json:"keys,omitempty"`
}

func newBatchCommand() *cobra.Command {
	var (
		file          string
		preserveOrder bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a JSON list of operations (eval, click, fill, type, key) through the batch engine.",
		Long: `Reads a JSON array of operations from --file (or stdin) and executes
them in bounded-concurrency chunks. Individual failures are reported in the
output without stopping the rest of the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readBatchEntries(cmd, file)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return errors.New("batch contains no operations")
			}

			comps := newComponents()
			defer comps.Shutdown()

			for i, entry := range entries {
				op, err := buildOperation(comps, entry)
				if err != nil {
					return fmt.Errorf("operation %d: %w", i, err)
				}
				comps.Processor.Enqueue(op)
			}

			out := comps.Processor.Run(cmd.Context(), preserveOrder)
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			for _, r := range out {
				if r.Result.IsFailure() {
					return fmt.Errorf("%d of %d operations failed", countFailures(out), len(out))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the batch JSON file (default: stdin)")
	cmd.Flags().BoolVar(&preserveOrder, "preserve-order", true, "report results in submission order instead of completion order")
	return cmd
}

func readBatchEntries(cmd *cobra.Command, file string) ([]batchEntry, error) {
	var data []byte
	var err error
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch input: %w", err)
	}

	var entries []batchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse batch input: %w", err)
	}
	return entries, nil
}

// buildOperation turns a batch entry into a runnable engine operation bound to
// the component stack. Unknown types fail up front so a typo doesn't burn a
// whole batch run.
func buildOperation(comps *service.Components, entry batchEntry) (engine.Operation, error) {
	name := entry.Name
	if name == "" {
		name = entry.Type
	}
	op := engine.Operation{Name: name}

	switch entry.Type {
	case "eval":
		if entry.Script == "" {
			return op, errors.New("eval requires a script")
		}
		op.Run = func(ctx context.Context) results.Result[any] {
			return results.Generalize(comps.Executor.EvalPage(ctx, entry.Script, entry.Tab, entry.Window,
				comps.Config.Automation().DefaultTimeout))
		}
	case "click":
		target := screen.Target{
			Selector:      entry.Selector,
			X:             entry.X,
			Y:             entry.Y,
			WindowIndex:   entry.Window,
			TabIndex:      entry.Tab,
			RequireUnique: true,
		}
		op.Run = func(ctx context.Context) results.Result[any] {
			coord := comps.Resolver.Resolve(ctx, target)
			if coord.IsFailure() {
				return results.Generalize(coord)
			}
			return results.Generalize(comps.Driver.Click(ctx, entry.Window, coord.Data))
		}
	case "fill":
		if entry.Selector == "" {
			return op, errors.New("fill requires a selector")
		}
		req := input.FillRequest{
			Selector:    entry.Selector,
			Value:       entry.Value,
			WindowIndex: entry.Window,
			TabIndex:    entry.Tab,
			Secret:      entry.Secret,
		}
		op.Run = func(ctx context.Context) results.Result[any] {
			return results.Generalize(comps.Filler.Fill(ctx, req))
		}
	case "type":
		op.Run = func(ctx context.Context) results.Result[any] {
			return results.Generalize(comps.Driver.Type(ctx, entry.Window, entry.Value,
				input.DisplayValue(entry.Value, entry.Secret)))
		}
	case "key":
		if len(entry.Keys) == 0 {
			return op, errors.New("key requires at least one key name")
		}
		op.Run = func(ctx context.Context) results.Result[any] {
			return results.Generalize(comps.Driver.KeyPress(ctx, entry.Window, entry.Keys...))
		}
	default:
		return op, fmt.Errorf("unknown operation type %q", entry.Type)
	}
	return op, nil
}

func countFailures(out []engine.OperationResult) int {
	n := 0
	for _, r := range out {
		if r.Result.IsFailure() {
			n++
		}
	}
	return n
}

func init() {
	rootCmd.AddCommand(newBatchCommand())
}
