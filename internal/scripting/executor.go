// File: internal/scripting/executor.go
package scripting

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/macpilot-cli/internal/cache"
	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

// errorSentinel is the stdout prefix the assembled scripts use to signal a
// failure path. osascript exits zero in that case, so the sentinel is the
// only reliable failure signal on the success stream.
const errorSentinel = "ERROR: "

// Output carries the raw streams of one external script invocation.
type Output struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Operation is one unit of work for ExecuteBatch.
type Operation struct {
	Script      string
	TabIndex    int
	WindowIndex int
}

// runFunc spawns a subprocess and returns its streams. Swappable in tests so
// no real osascript is needed.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

func runSubprocess(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Executor is the single choke point through which every browser-directed
// command passes. Each call spawns a fresh osascript process; the automation
// bridge has no persistent session, so the template cache only saves script
// assembly, never execution.
type Executor struct {
	cfg       config.Interface
	logger    *zap.Logger
	limiter   *rate.Limiter
	templates *cache.Cache[templateKey, string]
	pool      *ConnectionPool
	run       runFunc
}

// NewExecutor creates the scripting layer. All bounded shared state (template
// cache, connection pool) is owned here and injected nowhere else.
func NewExecutor(cfg config.Interface, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	auto := cfg.Automation()
	caches := cfg.Caches()
	return &Executor{
		cfg:       cfg,
		logger:    logger.Named("scripting"),
		limiter:   rate.NewLimiter(rate.Limit(auto.SpawnRatePerSecond), 1),
		templates: cache.New[templateKey, string](caches.ScriptCapacity, caches.ScriptTTL),
		pool:      NewConnectionPool(auto.ConnectionPoolSize, auto.ConnectionTTL),
	}
}

// SetRunner overrides subprocess spawning. Tests only.
func (e *Executor) SetRunner(run runFunc) { e.run = run }

// Pool exposes the connection bookkeeping table.
func (e *Executor) Pool() *ConnectionPool { return e.pool }

// ClearTemplates drops all cached script templates. Safe at any time; the
// next call reassembles from source.
func (e *Executor) ClearTemplates() { e.templates.Clear() }

// Execute evaluates a page script in the given Chrome tab and window and
// returns the raw process streams. The timeout bounds the subprocess; on
// expiry the process is killed and the call fails with a timeout code.
func (e *Executor) Execute(ctx context.Context, script string, tabIndex, windowIndex int, timeout time.Duration) results.Result[Output] {
	if tabIndex < 0 || windowIndex < 0 {
		return results.Failf[Output](results.CodeInvalidInput,
			"tab and window indices must not be negative (tab=%d window=%d)", tabIndex, windowIndex)
	}
	if strings.TrimSpace(script) == "" {
		return results.Fail[Output](results.CodeInvalidInput, "script must not be empty")
	}

	key := templateKey{Hash: hashScript(script), Tab: tabIndex, Window: windowIndex}
	src, ok := e.templates.Get(key)
	if !ok {
		src = assemble(script, tabIndex, windowIndex)
		e.templates.Set(key, src)
	}

	return e.runOsascript(ctx, src, timeout)
}

// EvalPage is Execute with the stdout protocol decoded: on success the
// returned string is the JSON-encoded evaluation result.
func (e *Executor) EvalPage(ctx context.Context, script string, tabIndex, windowIndex int, timeout time.Duration) results.Result[string] {
	res := e.Execute(ctx, script, tabIndex, windowIndex, timeout)
	if res.IsFailure() {
		return results.FailFrom[string](res)
	}
	return results.OK(strings.TrimSpace(res.Data.Stdout))
}

// WindowBoundsJSON reports a window's screen rectangle as a JSON object
// {x, y, width, height}.
func (e *Executor) WindowBoundsJSON(ctx context.Context, windowIndex int) results.Result[string] {
	if windowIndex < 0 {
		return results.Failf[string](results.CodeInvalidInput, "window index must not be negative: %d", windowIndex)
	}
	return e.runWindowFragment(ctx, windowBoundsFragment(windowIndex))
}

// ListWindowsJSON enumerates all Chrome windows as a JSON array of
// {index, title, x, y, width, height}.
func (e *Executor) ListWindowsJSON(ctx context.Context) results.Result[string] {
	return e.runWindowFragment(ctx, windowListFragment())
}

// FocusWindow raises the window and brings Chrome to the foreground. A window
// still warm in the connection pool skips the subprocess entirely; input
// injection only needs a re-focus after the pool entry has gone cold.
func (e *Executor) FocusWindow(ctx context.Context, windowIndex int) results.Result[bool] {
	if windowIndex < 0 {
		return results.Failf[bool](results.CodeInvalidInput, "window index must not be negative: %d", windowIndex)
	}
	if e.pool.Touch(windowIndex) {
		e.logger.Debug("window focus skipped, connection warm", zap.Int("window", windowIndex))
		return results.OK(true)
	}
	res := e.runWindowFragment(ctx, focusWindowFragment(windowIndex))
	if res.IsFailure() {
		return results.FailFrom[bool](res)
	}
	e.pool.Add(windowIndex)
	return results.OK(true)
}

func (e *Executor) runWindowFragment(ctx context.Context, fragment string) results.Result[string] {
	res := e.runOsascript(ctx, assembleWindowScript(fragment), e.cfg.Automation().DefaultTimeout)
	if res.IsFailure() {
		return results.FailFrom[string](res)
	}
	return results.OK(strings.TrimSpace(res.Data.Stdout))
}

// runOsascript spawns the external script interpreter and converts its
// outcome into the result taxonomy.
func (e *Executor) runOsascript(ctx context.Context, src string, timeout time.Duration) results.Result[Output] {
	if timeout <= 0 {
		timeout = e.cfg.Automation().DefaultTimeout
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return results.Failf[Output](results.CodeTimeout, "cancelled while waiting for spawn slot: %v", err)
	}

	procCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	run := e.run
	if run == nil {
		run = runSubprocess
	}
	stdout, stderr, err := run(procCtx, e.cfg.Automation().OsascriptPath, "-l", "JavaScript", "-e", src)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
			e.logger.Warn("script execution timed out", zap.Duration("timeout", timeout))
			return results.Failf[Output](results.CodeTimeout, "script execution exceeded %s", timeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return results.Failf[Output](results.CodeProcessFailed,
				"%s not found; the scripting bridge requires macOS osascript", e.cfg.Automation().OsascriptPath)
		}
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = err.Error()
		}
		if isPermissionDiagnostic(diag) {
			return results.Fail[Output](results.CodePermissionDenied,
				"automation permission denied; grant access in System Settings > Privacy & Security > Automation: "+diag)
		}
		return results.Fail[Output](results.CodeUnknown, diag)
	}

	if msg, found := strings.CutPrefix(strings.TrimSpace(stdout), errorSentinel); found {
		return results.Fail[Output](classifyScriptError(msg), msg)
	}

	e.logger.Debug("script executed", zap.Duration("elapsed", elapsed))
	return results.OKWithDuration(Output{Stdout: stdout, Stderr: stderr}, elapsed)
}

// isPermissionDiagnostic recognizes macOS automation permission failures in
// the interpreter's diagnostic stream. -1743 is errAEEventNotPermitted.
func isPermissionDiagnostic(diag string) bool {
	lower := strings.ToLower(diag)
	return strings.Contains(lower, "not authorized") ||
		strings.Contains(lower, "not allowed assistive access") ||
		strings.Contains(lower, "not permitted") ||
		strings.Contains(diag, "-1743")
}

// classifyScriptError maps a sentinel message from inside the assembled
// script to an error code.
func classifyScriptError(msg string) results.Code {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "is not running"):
		return results.CodeChromeNotRunning
	case strings.Contains(lower, "window index") && strings.Contains(lower, "out of range"):
		return results.CodeWindowNotFound
	case strings.Contains(lower, "tab index") && strings.Contains(lower, "out of range"):
		return results.CodeTargetNotFound
	default:
		return results.CodeJavaScriptError
	}
}
