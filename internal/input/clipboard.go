// File: internal/input/clipboard.go
package input

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Clipboard writes text to the system pasteboard. The paste-based fill
// strategy depends on it.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// Pasteboard implements Clipboard on top of the pbcopy utility, feeding the
// text through standard input so no shell quoting is involved.
type Pasteboard struct {
	run runFunc
}

// NewPasteboard creates the pbcopy-backed clipboard bridge.
func NewPasteboard() *Pasteboard {
	return &Pasteboard{run: runSubprocess}
}

// SetRunner overrides subprocess spawning. Tests only.
func (p *Pasteboard) SetRunner(run runFunc) { p.run = run }

// Copy places text on the pasteboard.
func (p *Pasteboard) Copy(ctx context.Context, text string) error {
	procCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, stderr, err := p.run(procCtx, text, "pbcopy")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("pbcopy not found: %w", err)
		}
		if stderr != "" {
			return fmt.Errorf("pbcopy failed: %s", stderr)
		}
		return fmt.Errorf("pbcopy failed: %w", err)
	}
	return nil
}
