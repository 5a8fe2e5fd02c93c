// File: internal/capture/capturer.go
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
)

// runFunc spawns a subprocess. Swappable in tests.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

func runSubprocess(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Capturer grabs the screen (or a window region) to a temporary file using
// the macOS screencapture utility and runs it through the adaptive encoder.
type Capturer struct {
	cfg     config.Interface
	logger  *zap.Logger
	encoder *Encoder
	run     runFunc
	tmpDir  string
}

// NewCapturer creates a screenshot capturer.
func NewCapturer(cfg config.Interface, logger *zap.Logger, encoder *Encoder) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{
		cfg:     cfg,
		logger:  logger.Named("screenshot"),
		encoder: encoder,
		run:     runSubprocess,
		tmpDir:  os.TempDir(),
	}
}

// SetRunner overrides subprocess spawning. Tests only.
func (c *Capturer) SetRunner(run runFunc) { c.run = run }

// CaptureScreen captures the full display and returns the encoded image.
func (c *Capturer) CaptureScreen(ctx context.Context) results.Result[Encoded] {
	return c.capture(ctx, nil)
}

// CaptureRegion captures the given screen rectangle, typically a browser
// window's bounds.
func (c *Capturer) CaptureRegion(ctx context.Context, bounds screen.WindowBounds) results.Result[Encoded] {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return results.Failf[Encoded](results.CodeInvalidInput,
			"capture region must have positive size, got %.0fx%.0f", bounds.Width, bounds.Height)
	}
	region := fmt.Sprintf("%.0f,%.0f,%.0f,%.0f", bounds.X, bounds.Y, bounds.Width, bounds.Height)
	return c.capture(ctx, []string{"-R", region})
}

func (c *Capturer) capture(ctx context.Context, extraArgs []string) results.Result[Encoded] {
	tmpFile := filepath.Join(c.tmpDir, fmt.Sprintf("macpilot-shot-%d.png", time.Now().UnixNano()))
	defer os.Remove(tmpFile)

	args := append([]string{"-x"}, extraArgs...)
	args = append(args, tmpFile)

	procCtx, cancel := context.WithTimeout(ctx, c.cfg.Automation().DefaultTimeout)
	defer cancel()

	_, stderr, err := c.run(procCtx, "screencapture", args...)
	if err != nil {
		if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
			return results.Fail[Encoded](results.CodeTimeout, "screen capture timed out")
		}
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = err.Error()
		}
		if strings.Contains(strings.ToLower(diag), "not allowed") {
			return results.Fail[Encoded](results.CodePermissionDenied,
				"screen recording permission denied; grant access in System Settings > Privacy & Security > Screen Recording")
		}
		return results.Fail[Encoded](results.CodeProcessFailed, diag)
	}

	return c.encoder.EncodeFile(tmpFile)
}
