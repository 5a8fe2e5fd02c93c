// File: internal/screen/visibility.go
package screen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

// Validator answers whether an element is visible, clickable and inside the
// viewport right now. Results are never cached; every call re-probes the
// page because any earlier answer may already be stale.
type Validator struct {
	logger  *zap.Logger
	channel ScriptChannel
}

// NewValidator creates a visibility validator backed by the scripting channel.
func NewValidator(logger *zap.Logger, channel ScriptChannel) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger.Named("visibility"), channel: channel}
}

type visibilityProbe struct {
	Found      bool `json:"found"`
	Visible    bool `json:"visible"`
	Clickable  bool `json:"clickable"`
	InViewport bool `json:"inViewport"`
}

// Check probes the element's current visibility state. A probe that cannot
// be evaluated at all is a channel failure and keeps its own code; an
// element that evaluated fine but is simply hidden reports
// ELEMENT_NOT_VISIBLE so callers can tell the two apart.
func (v *Validator) Check(ctx context.Context, selector string, tabIndex, windowIndex int) results.Result[VisibilityState] {
	if selector == "" {
		return results.Fail[VisibilityState](results.CodeInvalidInput, "selector must not be empty")
	}

	res := v.channel.EvalPage(ctx, visibilityScript(selector), tabIndex, windowIndex, 30*time.Second)
	if res.IsFailure() {
		return results.FailFrom[VisibilityState](res)
	}

	var probe visibilityProbe
	if err := json.UnmarshalFromString(res.Data, &probe); err != nil {
		return results.Failf[VisibilityState](results.CodeJavaScriptError, "malformed visibility probe output: %v", err)
	}
	if !probe.Found {
		return results.Failf[VisibilityState](results.CodeTargetNotFound, "no element matches selector %q", selector)
	}

	state := VisibilityState{
		Visible:    probe.Visible,
		Clickable:  probe.Clickable,
		InViewport: probe.InViewport,
	}
	if !state.Visible {
		return results.Fail[VisibilityState](results.CodeElementNotVisible,
			fmt.Sprintf("element %q is not visible", selector)).WithMetadata("state", state)
	}
	return results.OK(state)
}

// visibilityScript builds the page probe: computed style, non-zero bounding
// box, pointer-events, viewport intersection, and whether another element
// covers the target's center point.
func visibilityScript(selector string) string {
	quoted, _ := json.MarshalToString(selector)
	return fmt.Sprintf(`(function() {
	var els = document.querySelectorAll(%s);
	if (els.length === 0) { return {found: false}; }
	var el = els[0];
	var style = window.getComputedStyle(el);
	var r = el.getBoundingClientRect();
	var visible = style.display !== 'none' && style.visibility !== 'hidden' &&
		parseFloat(style.opacity) > 0 && r.width > 0 && r.height > 0;
	var inViewport = r.bottom > 0 && r.right > 0 &&
		r.top < window.innerHeight && r.left < window.innerWidth;
	var clickable = visible && inViewport && style.pointerEvents !== 'none';
	if (clickable) {
		var cx = r.left + r.width / 2;
		var cy = r.top + r.height / 2;
		var covering = document.elementFromPoint(cx, cy);
		clickable = covering !== null &&
			(covering === el || el.contains(covering) || covering.contains(el));
	}
	return {found: true, visible: visible, clickable: clickable, inViewport: inViewport};
})()`, quoted)
}
