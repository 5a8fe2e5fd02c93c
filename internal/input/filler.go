// File: internal/input/filler.go
package input

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FillMethod selects how the value reaches the element.
type FillMethod string

const (
	// MethodAuto walks the ladder: paste, then keystrokes, then direct JS
	// value assignment, stopping at the first method that lands.
	MethodAuto  FillMethod = "auto"
	MethodPaste FillMethod = "paste"
	MethodType  FillMethod = "type"
	MethodJS    FillMethod = "js"
)

// FillRequest describes one input-fill operation.
type FillRequest struct {
	Selector    string
	Value       string
	WindowIndex int
	TabIndex    int
	Method      FillMethod
	// SkipClear leaves existing content in place instead of select-all +
	// delete before input.
	SkipClear bool
	// Secret masks the value on every log and output surface. The true
	// value is still used for the actual input action.
	Secret bool
}

// FillOutcome reports how the fill went.
type FillOutcome struct {
	Method  FillMethod `json:"method"`
	Cleared bool       `json:"cleared"`
	Value   string     `json:"value"`
}

// Filler drives the progressive input-fill state machine:
// Validate -> Focus -> Clear(optional) -> Input -> Done|Failed.
type Filler struct {
	cfg       config.Interface
	logger    *zap.Logger
	resolver  *screen.Resolver
	validator *screen.Validator
	driver    *Driver
	channel   screen.ScriptChannel
	clipboard Clipboard

	sleep func(ctx context.Context, d time.Duration) error
}

// NewFiller wires the filler to its collaborators.
func NewFiller(
	cfg config.Interface,
	logger *zap.Logger,
	resolver *screen.Resolver,
	validator *screen.Validator,
	driver *Driver,
	channel screen.ScriptChannel,
	clipboard Clipboard,
) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{
		cfg:       cfg,
		logger:    logger.Named("filler"),
		resolver:  resolver,
		validator: validator,
		driver:    driver,
		channel:   channel,
		clipboard: clipboard,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// elementProbe is the JSON shape of the interactability probe.
type elementProbe struct {
	Found    bool `json:"found"`
	Count    int  `json:"count"`
	Editable bool `json:"editable"`
	Disabled bool `json:"disabled"`
	ReadOnly bool `json:"readOnly"`
}

// Fill runs the state machine. Validation failures are terminal and never
// retried; focus failures are retried once per their recovery hint; a failed
// clear degrades to cleared=false instead of aborting.
func (f *Filler) Fill(ctx context.Context, req FillRequest) results.Result[FillOutcome] {
	if req.Selector == "" {
		return results.Fail[FillOutcome](results.CodeInvalidInput, "selector must not be empty")
	}
	if req.Value == "" {
		return results.Fail[FillOutcome](results.CodeInvalidInput, "value must not be empty")
	}
	if req.Method == "" {
		req.Method = MethodAuto
	}

	log := f.logger.With(
		zap.String("selector", req.Selector),
		zap.String("value", DisplayValue(req.Value, req.Secret)),
	)

	// -- Validate --
	if res := f.validateElement(ctx, req); res.IsFailure() {
		return results.FailFrom[FillOutcome](res)
	}

	// -- Focus --
	if res := f.focus(ctx, req, log); res.IsFailure() {
		return results.FailFrom[FillOutcome](res)
	}

	// -- Clear (best effort) --
	cleared := false
	if !req.SkipClear {
		cleared = f.clear(ctx, req, log)
	}

	// -- Input --
	ladder := []FillMethod{MethodPaste, MethodType, MethodJS}
	if req.Method != MethodAuto {
		ladder = []FillMethod{req.Method}
	}

	var lastFailure results.Result[bool]
	lastMethod := ladder[0]
	for _, method := range ladder {
		lastMethod = method
		attempt := f.applyMethod(ctx, method, req)
		if attempt.IsSuccess() {
			log.Info("fill completed", zap.String("method", string(method)), zap.Bool("cleared", cleared))
			return results.OK(FillOutcome{
				Method:  method,
				Cleared: cleared,
				Value:   DisplayValue(req.Value, req.Secret),
			})
		}
		lastFailure = attempt
		log.Debug("fill method failed, trying next",
			zap.String("method", string(method)),
			zap.String("code", string(attempt.Code)),
		)
	}

	failed := results.FailFrom[FillOutcome](lastFailure)
	return failed.WithMetadata("method", string(lastMethod))
}

func (f *Filler) validateElement(ctx context.Context, req FillRequest) results.Result[bool] {
	res := f.channel.EvalPage(ctx, interactabilityProbe(req.Selector), req.TabIndex, req.WindowIndex, 0)
	if res.IsFailure() {
		return results.FailFrom[bool](res)
	}

	var probe elementProbe
	if err := json.UnmarshalFromString(res.Data, &probe); err != nil {
		return results.Failf[bool](results.CodeJavaScriptError, "malformed interactability probe output: %v", err)
	}
	switch {
	case !probe.Found:
		return results.Failf[bool](results.CodeTargetNotFound, "no element matches selector %q", req.Selector)
	case probe.Count > 1:
		return results.Failf[bool](results.CodeMultipleTargetsFound,
			"selector %q matches %d elements", req.Selector, probe.Count)
	case !probe.Editable:
		return results.Failf[bool](results.CodeElementNotInteractable,
			"element %q is not an input, textarea or content-editable", req.Selector)
	case probe.Disabled:
		return results.Failf[bool](results.CodeElementNotInteractable, "element %q is disabled", req.Selector)
	case probe.ReadOnly:
		return results.Failf[bool](results.CodeElementNotInteractable, "element %q is read-only", req.Selector)
	}
	return results.OK(true)
}

// focus resolves the element's screen coordinate and clicks it. Transient
// click failures get one retry, with backoff when the hint asks for it.
func (f *Filler) focus(ctx context.Context, req FillRequest, log *zap.Logger) results.Result[bool] {
	coord := f.resolver.Resolve(ctx, screen.Target{
		Selector:      req.Selector,
		WindowIndex:   req.WindowIndex,
		TabIndex:      req.TabIndex,
		RequireUnique: true,
	})
	if coord.IsFailure() {
		return results.FailFrom[bool](coord)
	}

	click := f.driver.Click(ctx, req.WindowIndex, coord.Data)
	if click.IsSuccess() {
		return click
	}

	switch click.Context.RecoveryHint {
	case results.RecoveryRetry:
		log.Debug("focus click failed, retrying")
	case results.RecoveryRetryWithDelay:
		log.Debug("focus click failed, retrying after delay")
		if err := f.sleep(ctx, f.cfg.Engine().RetryDelay); err != nil {
			return results.Failf[bool](results.CodeTimeout, "cancelled during focus retry: %v", err)
		}
	default:
		return click
	}
	return f.driver.Click(ctx, req.WindowIndex, coord.Data)
}

// clear selects all and deletes. A failure here is non-fatal: a best-effort
// clear beats aborting the whole fill.
func (f *Filler) clear(ctx context.Context, req FillRequest, log *zap.Logger) bool {
	if res := f.driver.KeyPress(ctx, req.WindowIndex, "cmd", "a"); res.IsFailure() {
		log.Warn("field clear failed, proceeding without clearing", zap.String("code", string(res.Code)))
		return false
	}
	if res := f.driver.KeyPress(ctx, req.WindowIndex, "delete"); res.IsFailure() {
		log.Warn("field clear failed, proceeding without clearing", zap.String("code", string(res.Code)))
		return false
	}
	return true
}

func (f *Filler) applyMethod(ctx context.Context, method FillMethod, req FillRequest) results.Result[bool] {
	switch method {
	case MethodPaste:
		if err := f.clipboard.Copy(ctx, req.Value); err != nil {
			return results.Failf[bool](results.CodeProcessFailed, "clipboard write failed: %v", err)
		}
		return f.driver.KeyPress(ctx, req.WindowIndex, "cmd", "v")
	case MethodType:
		return f.driver.Type(ctx, req.WindowIndex, req.Value, DisplayValue(req.Value, req.Secret))
	case MethodJS:
		return f.injectValue(ctx, req)
	default:
		return results.Failf[bool](results.CodeInvalidInput, "unknown fill method %q", method)
	}
}

// injectValue assigns the value directly and dispatches synthetic input and
// change events so framework listeners notice the edit.
func (f *Filler) injectValue(ctx context.Context, req FillRequest) results.Result[bool] {
	res := f.channel.EvalPage(ctx, setValueScript(req.Selector, req.Value), req.TabIndex, req.WindowIndex, 0)
	if res.IsFailure() {
		return results.FailFrom[bool](res)
	}
	if strings.TrimSpace(res.Data) != "true" {
		return results.Failf[bool](results.CodeJavaScriptError, "value injection reported %s", res.Data)
	}
	return results.OK(true)
}

// DisplayValue masks secrets for output surfaces: the first two characters
// survive, the rest become asterisks. Short values are masked entirely.
func DisplayValue(value string, secret bool) string {
	if !secret {
		return value
	}
	runes := []rune(value)
	if len(runes) <= 3 {
		return "***"
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-2)
}

func interactabilityProbe(selector string) string {
	quoted, _ := json.MarshalToString(selector)
	return fmt.Sprintf(`(function() {
	var els = document.querySelectorAll(%s);
	if (els.length === 0) { return {found: false}; }
	var el = els[0];
	var tag = el.tagName.toLowerCase();
	var editable = tag === 'input' || tag === 'textarea' || el.isContentEditable === true;
	return {
		found: true,
		count: els.length,
		editable: editable,
		disabled: el.disabled === true,
		readOnly: el.readOnly === true
	};
})()`, quoted)
}

func setValueScript(selector, value string) string {
	quotedSel, _ := json.MarshalToString(selector)
	quotedVal, _ := json.MarshalToString(value)
	return fmt.Sprintf(`(function() {
	var el = document.querySelector(%s);
	if (!el) { return false; }
	if (el.isContentEditable) {
		el.textContent = %s;
	} else {
		el.value = %s;
	}
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, quotedSel, quotedVal, quotedVal)
}
