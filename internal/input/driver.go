// File: internal/input/driver.go
package input

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
)

// WindowFocuser brings a browser window to the foreground. Input injection
// is blind: events land wherever the OS focus is, so the right window must
// be frontmost before any pointer or key event fires.
type WindowFocuser interface {
	FocusWindow(ctx context.Context, windowIndex int) results.Result[bool]
}

// runFunc spawns a subprocess with optional stdin. Swappable in tests.
type runFunc func(ctx context.Context, stdin, name string, args ...string) (stdout, stderr string, err error)

func runSubprocess(ctx context.Context, stdin, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Driver injects mouse and keyboard events through the external cliclick
// binary. Every action first focuses the target window through the
// scripting channel.
type Driver struct {
	cfg     config.Interface
	logger  *zap.Logger
	focuser WindowFocuser
	run     runFunc
}

// NewDriver creates an input driver.
func NewDriver(cfg config.Interface, logger *zap.Logger, focuser WindowFocuser) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:     cfg,
		logger:  logger.Named("input"),
		focuser: focuser,
		run:     runSubprocess,
	}
}

// SetRunner overrides subprocess spawning. Tests only.
func (d *Driver) SetRunner(run runFunc) { d.run = run }

// Click presses and releases the primary button at the screen coordinate.
func (d *Driver) Click(ctx context.Context, windowIndex int, at screen.Coordinate) results.Result[bool] {
	return d.pointerAction(ctx, windowIndex, results.CodeMouseClickFailed, "c:"+formatPoint(at))
}

// Move places the pointer at the screen coordinate without clicking.
func (d *Driver) Move(ctx context.Context, windowIndex int, to screen.Coordinate) results.Result[bool] {
	return d.pointerAction(ctx, windowIndex, results.CodeProcessFailed, "m:"+formatPoint(to))
}

// Drag presses at from, moves to to, and releases.
func (d *Driver) Drag(ctx context.Context, windowIndex int, from, to screen.Coordinate) results.Result[bool] {
	return d.pointerAction(ctx, windowIndex, results.CodeProcessFailed,
		"dd:"+formatPoint(from), "dm:"+formatPoint(to), "du:"+formatPoint(to))
}

// Type emits the text as keystrokes into the focused element. The display
// form stands in for the raw text on every log surface; callers holding a
// sensitive value pass a masked form, everyone else passes the text itself.
func (d *Driver) Type(ctx context.Context, windowIndex int, text, display string) results.Result[bool] {
	if text == "" {
		return results.Fail[bool](results.CodeInvalidInput, "text must not be empty")
	}
	return d.inject(ctx, windowIndex, results.CodeProcessFailed, []string{"t:" + display}, "t:"+text)
}

// KeyPress emits a key press or combo, e.g. ["cmd", "a"].
func (d *Driver) KeyPress(ctx context.Context, windowIndex int, keys ...string) results.Result[bool] {
	if len(keys) == 0 {
		return results.Fail[bool](results.CodeInvalidInput, "at least one key is required")
	}
	return d.pointerAction(ctx, windowIndex, results.CodeProcessFailed, "kp:"+strings.Join(keys, ","))
}

// pointerAction focuses the window, then invokes cliclick with the given
// positional commands. Coordinates and key names are safe to log verbatim.
func (d *Driver) pointerAction(ctx context.Context, windowIndex int, failCode results.Code, commands ...string) results.Result[bool] {
	return d.inject(ctx, windowIndex, failCode, commands, commands...)
}

// inject runs cliclick. logForm is what appears in logs in place of commands;
// the two differ only when a command carries sensitive text.
func (d *Driver) inject(ctx context.Context, windowIndex int, failCode results.Code, logForm []string, commands ...string) results.Result[bool] {
	if focus := d.focuser.FocusWindow(ctx, windowIndex); focus.IsFailure() {
		return results.FailFrom[bool](focus)
	}

	auto := d.cfg.Automation()
	procCtx, cancel := context.WithTimeout(ctx, auto.DefaultTimeout)
	defer cancel()

	start := time.Now()
	_, stderr, err := d.run(procCtx, "", auto.CliclickPath, commands...)
	if err != nil {
		if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
			return results.Failf[bool](results.CodeTimeout, "input injection exceeded %s", auto.DefaultTimeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return results.Failf[bool](results.CodeTargetNotFound,
				"%s not found; install it with `brew install cliclick`", auto.CliclickPath)
		}
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = err.Error()
		}
		return results.Fail[bool](failCode, diag)
	}

	d.logger.Debug("input injected",
		zap.Strings("commands", logForm),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results.OKWithDuration(true, time.Since(start))
}

// formatPoint renders a screen coordinate for cliclick. Negative values get
// the "=" prefix; a bare leading minus would be read as relative movement.
func formatPoint(c screen.Coordinate) string {
	return formatComponent(c.X) + "," + formatComponent(c.Y)
}

func formatComponent(v float64) string {
	n := int(math.Round(v))
	if n < 0 {
		return fmt.Sprintf("=%d", n)
	}
	return fmt.Sprintf("%d", n)
}
