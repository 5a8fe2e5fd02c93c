// File: internal/capture/capturer_test.go
package capture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
)

// fakeScreencapture mimics the capture utility by writing a real PNG to the
// requested output path.
type fakeScreencapture struct {
	mu     sync.Mutex
	argv   [][]string
	stderr string
	err    error
}

func (f *fakeScreencapture) run(ctx context.Context, name string, args ...string) (string, string, error) {
	f.mu.Lock()
	f.argv = append(f.argv, append([]string{name}, args...))
	f.mu.Unlock()
	if f.err != nil {
		return "", f.stderr, f.err
	}
	outPath := args[len(args)-1]
	if err := imaging.Save(flatImage(64, 64), outPath); err != nil {
		return "", "", err
	}
	return "", "", nil
}

func newTestCapturer(t *testing.T, fake *fakeScreencapture) *Capturer {
	t.Helper()
	cfg := config.NewDefaultConfig()
	logger := zap.NewNop()
	c := NewCapturer(cfg, logger, NewEncoder(cfg, logger))
	c.SetRunner(fake.run)
	c.tmpDir = t.TempDir()
	return c
}

func TestCaptureScreen(t *testing.T) {
	fake := &fakeScreencapture{}
	c := newTestCapturer(t, fake)

	res := c.CaptureScreen(context.Background())
	require.True(t, res.IsSuccess(), res.Error())
	assert.Equal(t, 64, res.Data.Width)
	assert.True(t, res.Data.UnderBudget)

	require.Len(t, fake.argv, 1)
	assert.Equal(t, "screencapture", fake.argv[0][0])
	assert.Equal(t, "-x", fake.argv[0][1], "capture must be silent")
	assert.NotContains(t, fake.argv[0], "-R")
}

func TestCaptureRegionPassesBounds(t *testing.T) {
	fake := &fakeScreencapture{}
	c := newTestCapturer(t, fake)

	res := c.CaptureRegion(context.Background(), screen.WindowBounds{X: 10, Y: 20, Width: 300, Height: 200})
	require.True(t, res.IsSuccess(), res.Error())

	require.Len(t, fake.argv, 1)
	assert.Contains(t, fake.argv[0], "-R")
	assert.Contains(t, fake.argv[0], "10,20,300,200")
}

func TestCaptureRegionRejectsEmptyBounds(t *testing.T) {
	fake := &fakeScreencapture{}
	c := newTestCapturer(t, fake)

	for _, bounds := range []screen.WindowBounds{
		{Width: 0, Height: 100},
		{Width: 100, Height: 0},
		{Width: -1, Height: 100},
	} {
		res := c.CaptureRegion(context.Background(), bounds)
		assert.Equal(t, results.CodeInvalidInput, res.Code)
	}
	assert.Empty(t, fake.argv, "invalid bounds must not spawn a process")
}

func TestCapturePermissionDenied(t *testing.T) {
	fake := &fakeScreencapture{
		err:    errors.New("exit status 1"),
		stderr: "screencapture: cannot capture screen, not allowed to record the screen",
	}
	c := newTestCapturer(t, fake)

	res := c.CaptureScreen(context.Background())
	require.True(t, res.IsFailure())
	assert.Equal(t, results.CodePermissionDenied, res.Code)
	assert.Equal(t, results.RecoveryPermission, res.Context.RecoveryHint)
	assert.Contains(t, res.Err, "Screen Recording")
}

func TestCaptureProcessFailure(t *testing.T) {
	fake := &fakeScreencapture{err: errors.New("exit status 1"), stderr: "no displays"}
	c := newTestCapturer(t, fake)

	res := c.CaptureScreen(context.Background())
	require.True(t, res.IsFailure())
	assert.Equal(t, results.CodeProcessFailed, res.Code)
}
