// File: internal/screen/resolver.go
package screen

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/cache"
	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ScriptChannel is the slice of the scripting layer the resolver needs.
// Declared here so tests can substitute a fake channel.
type ScriptChannel interface {
	EvalPage(ctx context.Context, script string, tabIndex, windowIndex int, timeout time.Duration) results.Result[string]
	WindowBoundsJSON(ctx context.Context, windowIndex int) results.Result[string]
	ListWindowsJSON(ctx context.Context) results.Result[string]
}

// Target describes what to resolve: either a CSS selector or a fixed
// viewport coordinate, in a given window and tab. Offsets apply to the final
// screen point, after resolution.
type Target struct {
	Selector    string
	X           float64
	Y           float64
	WindowIndex int
	TabIndex    int
	OffsetX     float64
	OffsetY     float64
	// RequireUnique fails resolution when the selector matches more than
	// one node. Operations that click or fill set it; read-only probes
	// may accept the first match.
	RequireUnique bool
}

// coordKey keys the short-lived coordinate cache. Layout can shift under our
// feet, so entries live only as long as the configured TTL allows.
type coordKey struct {
	Selector string
	Window   int
	Tab      int
}

// Resolver turns a Target into a verified physical screen coordinate by
// combining a DOM probe (viewport-space rectangle) with the window's screen
// bounds and the fixed chrome offset.
type Resolver struct {
	cfg     config.Interface
	logger  *zap.Logger
	channel ScriptChannel
	coords  *cache.Cache[coordKey, Coordinate]
}

// NewResolver creates a resolver backed by the given scripting channel.
func NewResolver(cfg config.Interface, logger *zap.Logger, channel ScriptChannel) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	caches := cfg.Caches()
	return &Resolver{
		cfg:     cfg,
		logger:  logger.Named("resolver"),
		channel: channel,
		coords:  cache.New[coordKey, Coordinate](caches.CoordinateCapacity, caches.CoordinateTTL),
	}
}

// Cache exposes the coordinate cache for ownership wiring and tests.
func (r *Resolver) Cache() *cache.Cache[coordKey, Coordinate] { return r.coords }

// Resolve produces a screen coordinate for the target. Selector lookups go
// through the coordinate cache; raw coordinate lookups always recompute,
// because they are cheap and depend on mutable window bounds.
func (r *Resolver) Resolve(ctx context.Context, target Target) results.Result[Coordinate] {
	if !isFinite(target.OffsetX) || !isFinite(target.OffsetY) {
		return results.Fail[Coordinate](results.CodeInvalidCoordinates, "offsets must be finite")
	}

	var res results.Result[Coordinate]
	if target.Selector != "" {
		res = r.resolveSelector(ctx, target)
	} else {
		res = r.resolveViewportPoint(ctx, target)
	}
	if res.IsFailure() {
		return res
	}

	// Offsets are relative to the final screen point, not the viewport point.
	final := Coordinate{X: res.Data.X + target.OffsetX, Y: res.Data.Y + target.OffsetY}
	if !final.IsFinite() {
		return results.Fail[Coordinate](results.CodeInvalidCoordinates, "resolved coordinate is not finite")
	}
	return results.OK(final)
}

// rectProbe is the JSON shape the element probe reports.
type rectProbe struct {
	Count  int     `json:"count"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r *Resolver) resolveSelector(ctx context.Context, target Target) results.Result[Coordinate] {
	key := coordKey{Selector: target.Selector, Window: target.WindowIndex, Tab: target.TabIndex}
	if coord, ok := r.coords.Get(key); ok {
		r.logger.Debug("coordinate cache hit", zap.String("selector", target.Selector))
		return results.OK(coord)
	}

	probe := r.channel.EvalPage(ctx, elementRectProbe(target.Selector), target.TabIndex, target.WindowIndex, 0)
	if probe.IsFailure() {
		return results.FailFrom[Coordinate](probe)
	}

	var rect rectProbe
	if err := json.UnmarshalFromString(probe.Data, &rect); err != nil {
		return results.Failf[Coordinate](results.CodeJavaScriptError, "malformed element probe output: %v", err)
	}
	if rect.Count == 0 {
		return results.Failf[Coordinate](results.CodeTargetNotFound, "no element matches selector %q", target.Selector)
	}
	if rect.Count > 1 && target.RequireUnique {
		return results.Failf[Coordinate](results.CodeMultipleTargetsFound,
			"selector %q matches %d elements", target.Selector, rect.Count)
	}

	center := Target{
		X:           rect.X + rect.Width/2,
		Y:           rect.Y + rect.Height/2,
		WindowIndex: target.WindowIndex,
		TabIndex:    target.TabIndex,
	}
	res := r.resolveViewportPoint(ctx, center)
	// Only unique matches are cacheable: a hit answers strict and loose
	// requests alike, and an ambiguous entry would let a cached loose
	// resolve mask MULTIPLE_TARGETS_FOUND from a later strict one.
	if res.IsSuccess() && rect.Count == 1 {
		r.coords.Set(key, res.Data)
	}
	return res
}

// resolveViewportPoint applies the affine transform
// screen = windowOrigin + chromeOffset + viewportPoint.
func (r *Resolver) resolveViewportPoint(ctx context.Context, target Target) results.Result[Coordinate] {
	if !isFinite(target.X) || !isFinite(target.Y) {
		return results.Failf[Coordinate](results.CodeInvalidCoordinates,
			"viewport point (%v, %v) is not finite", target.X, target.Y)
	}

	boundsRes := r.WindowBounds(ctx, target.WindowIndex)
	if boundsRes.IsFailure() {
		return results.FailFrom[Coordinate](boundsRes)
	}
	bounds := boundsRes.Data

	coord := Coordinate{
		X: bounds.X + target.X,
		Y: bounds.Y + float64(r.cfg.Automation().ChromeOffset) + target.Y,
	}
	if !coord.IsFinite() {
		return results.Fail[Coordinate](results.CodeInvalidCoordinates, "computed screen coordinate is not finite")
	}
	return results.OK(coord)
}

// WindowBounds fetches the screen rectangle of a window through the
// scripting channel.
func (r *Resolver) WindowBounds(ctx context.Context, windowIndex int) results.Result[WindowBounds] {
	res := r.channel.WindowBoundsJSON(ctx, windowIndex)
	if res.IsFailure() {
		return results.FailFrom[WindowBounds](res)
	}
	var bounds WindowBounds
	if err := json.UnmarshalFromString(res.Data, &bounds); err != nil {
		return results.Failf[WindowBounds](results.CodeJavaScriptError, "malformed window bounds output: %v", err)
	}
	return results.OK(bounds)
}

// ListWindows enumerates all browser windows.
func (r *Resolver) ListWindows(ctx context.Context) results.Result[[]WindowInfo] {
	res := r.channel.ListWindowsJSON(ctx)
	if res.IsFailure() {
		return results.FailFrom[[]WindowInfo](res)
	}
	var windows []WindowInfo
	if err := json.UnmarshalFromString(res.Data, &windows); err != nil {
		return results.Failf[[]WindowInfo](results.CodeJavaScriptError, "malformed window list output: %v", err)
	}
	return results.OK(windows)
}

// elementRectProbe builds the page script reporting the first match's
// viewport rectangle and the total match count. The probe reads layout state
// only; it never mutates the page.
func elementRectProbe(selector string) string {
	quoted, _ := json.MarshalToString(selector)
	return fmt.Sprintf(`(function() {
	var els = document.querySelectorAll(%s);
	if (els.length === 0) { return {count: 0}; }
	var r = els[0].getBoundingClientRect();
	return {count: els.length, x: r.left, y: r.top, width: r.width, height: r.height};
})()`, quoted)
}
