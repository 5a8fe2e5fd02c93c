// File: internal/scripting/batch.go
package scripting

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

// batchEnvelope is one element of the JSON array the combined batch script
// prints: exactly one of Value/Error is meaningful depending on Ok.
type batchEnvelope struct {
	Ok    bool   `json:"ok"`
	Value string `json:"value"`
	Error string `json:"error"`
}

// ExecuteBatch runs several page scripts in a single osascript invocation.
// Every operation executes inside its own error trap, so one failure never
// aborts the rest, and results come back in input order. If the combined
// output cannot be parsed the layer silently falls back to executing each
// operation individually; callers never observe which path ran.
func (e *Executor) ExecuteBatch(ctx context.Context, ops []Operation) []results.Result[Output] {
	if len(ops) == 0 {
		return nil
	}
	for i, op := range ops {
		if op.TabIndex < 0 || op.WindowIndex < 0 || strings.TrimSpace(op.Script) == "" {
			out := make([]results.Result[Output], len(ops))
			for j := range out {
				out[j] = results.Failf[Output](results.CodeInvalidInput,
					"batch operation %d is invalid", i)
			}
			return out
		}
	}

	combined := assembleBatch(ops)
	res := e.runOsascript(ctx, combined, e.cfg.Automation().DefaultTimeout)
	if res.IsFailure() {
		// Channel-level failure for the whole batch. Retry individually:
		// a single misbehaving operation must not take the others down.
		e.logger.Debug("combined batch failed, falling back to individual execution",
			zap.String("code", string(res.Code)))
		return e.executeIndividually(ctx, ops)
	}

	var envelopes []batchEnvelope
	if err := json.UnmarshalFromString(strings.TrimSpace(res.Data.Stdout), &envelopes); err != nil || len(envelopes) != len(ops) {
		e.logger.Debug("batch output parse anomaly, falling back to individual execution",
			zap.Int("expected", len(ops)), zap.Int("got", len(envelopes)))
		return e.executeIndividually(ctx, ops)
	}

	out := make([]results.Result[Output], len(ops))
	for i, env := range envelopes {
		if env.Ok {
			out[i] = results.OK(Output{Stdout: env.Value})
			continue
		}
		out[i] = results.Fail[Output](classifyScriptError(env.Error), env.Error)
	}
	return out
}

func (e *Executor) executeIndividually(ctx context.Context, ops []Operation) []results.Result[Output] {
	out := make([]results.Result[Output], len(ops))
	for i, op := range ops {
		out[i] = e.Execute(ctx, op.Script, op.TabIndex, op.WindowIndex, e.cfg.Automation().DefaultTimeout)
	}
	return out
}

// assembleBatch builds one JXA program executing every operation in order,
// each inside its own try/catch, printing a JSON array of batchEnvelopes.
func assembleBatch(ops []Operation) string {
	var b strings.Builder
	b.WriteString(`(function() {
	var chrome = Application('Google Chrome');
	if (!chrome.running()) {
		return 'ERROR: application is not running';
	}
	var out = [];
`)
	for _, op := range ops {
		fmt.Fprintf(&b, `	try {
		if (chrome.windows.length <= %d) { throw new Error('window index %d out of range'); }
		if (chrome.windows[%d].tabs.length <= %d) { throw new Error('tab index %d out of range'); }
		var r = chrome.windows[%d].tabs[%d].execute({javascript: %s});
		out.push({ok: true, value: JSON.stringify(r === undefined ? null : r), error: ''});
	} catch (e) {
		out.push({ok: false, value: '', error: '' + e.message});
	}
`,
			op.WindowIndex, op.WindowIndex,
			op.WindowIndex, op.TabIndex, op.TabIndex,
			op.WindowIndex, op.TabIndex,
			quoteJS(op.Script))
	}
	b.WriteString(`	return JSON.stringify(out);
})()`)
	return b.String()
}
