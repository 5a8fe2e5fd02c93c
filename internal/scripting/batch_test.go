// File: internal/scripting/batch_test.go
package scripting

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

func batchOps(n int) []Operation {
	ops := make([]Operation, n)
	for i := range ops {
		ops[i] = Operation{Script: fmt.Sprintf("op(%d)", i), TabIndex: 0, WindowIndex: 0}
	}
	return ops
}

func TestExecuteBatchCombinedSuccess(t *testing.T) {
	runner := &fakeRunner{
		stdout: `[{"ok":true,"value":"1","error":""},{"ok":true,"value":"2","error":""},{"ok":true,"value":"3","error":""}]`,
	}
	e := newTestExecutor(t, runner)

	out := e.ExecuteBatch(context.Background(), batchOps(3))
	require.Len(t, out, 3)
	for i, res := range out {
		require.True(t, res.IsSuccess(), "operation %d failed: %s", i, res.Error())
		assert.Equal(t, fmt.Sprintf("%d", i+1), res.Data.Stdout)
	}

	// All three ran in one invocation, and the combined source carries every
	// operation's script in order.
	require.Equal(t, 1, runner.callCount())
	src := runner.calls[0]
	assert.Less(t, strings.Index(src, `"op(0)"`), strings.Index(src, `"op(1)"`))
	assert.Less(t, strings.Index(src, `"op(1)"`), strings.Index(src, `"op(2)"`))
}

func TestExecuteBatchPreservesOrderAcrossFailure(t *testing.T) {
	runner := &fakeRunner{
		stdout: `[{"ok":true,"value":"\"a\"","error":""},{"ok":false,"value":"","error":"boom is not defined"},{"ok":true,"value":"\"c\"","error":""}]`,
	}
	e := newTestExecutor(t, runner)

	out := e.ExecuteBatch(context.Background(), batchOps(3))
	require.Len(t, out, 3)

	assert.True(t, out[0].IsSuccess())
	require.True(t, out[1].IsFailure())
	assert.Equal(t, results.CodeJavaScriptError, out[1].Code)
	assert.Contains(t, out[1].Err, "boom")
	assert.True(t, out[2].IsSuccess(), "a mid-batch failure must not abort later operations")
}

func TestExecuteBatchFallsBackOnChannelFailure(t *testing.T) {
	// First call (the combined script) hits a cold bridge; the individual
	// retries succeed.
	var count int
	runner := &fakeRunner{}
	runner.respond = func(string) (string, string, error) {
		count++
		if count == 1 {
			return "ERROR: application is not running", "", nil
		}
		return `"ok"`, "", nil
	}
	e := newTestExecutor(t, runner)

	out := e.ExecuteBatch(context.Background(), batchOps(2))
	require.Len(t, out, 2)
	for i, res := range out {
		assert.True(t, res.IsSuccess(), "operation %d: %s", i, res.Error())
	}
	// 1 combined attempt + 2 individual executions.
	assert.Equal(t, 3, runner.callCount())
}

func TestExecuteBatchFallsBackOnParseAnomaly(t *testing.T) {
	cases := []struct {
		name   string
		stdout string
	}{
		{"not json", "garbage"},
		{"wrong length", `[{"ok":true,"value":"1","error":""}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var count int
			runner := &fakeRunner{}
			runner.respond = func(string) (string, string, error) {
				count++
				if count == 1 {
					return tc.stdout, "", nil
				}
				return "null", "", nil
			}
			e := newTestExecutor(t, runner)

			out := e.ExecuteBatch(context.Background(), batchOps(2))
			require.Len(t, out, 2)
			for _, res := range out {
				assert.True(t, res.IsSuccess())
			}
			assert.Equal(t, 3, runner.callCount())
		})
	}
}

func TestExecuteBatchEmptyAndInvalid(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(t, runner)

	assert.Nil(t, e.ExecuteBatch(context.Background(), nil))

	ops := batchOps(2)
	ops[1].Script = "  "
	out := e.ExecuteBatch(context.Background(), ops)
	require.Len(t, out, 2)
	for _, res := range out {
		assert.Equal(t, results.CodeInvalidInput, res.Code)
	}
	assert.Zero(t, runner.callCount())
}

func TestConnectionPoolEvictionAndExpiry(t *testing.T) {
	p := NewConnectionPool(2, 30*time.Second)
	now := time.Unix(5000, 0)
	p.SetClock(func() time.Time { return now })

	p.Add(0)
	now = now.Add(time.Second)
	p.Add(1)
	assert.Equal(t, 2, p.Len())

	// Adding a third evicts the stalest record (window 0).
	p.Add(2)
	assert.Equal(t, 2, p.Len())
	assert.False(t, p.Touch(0))
	assert.True(t, p.Touch(1))
	assert.True(t, p.Touch(2))

	// Records expire ttl after their last use.
	now = now.Add(31 * time.Second)
	assert.False(t, p.Touch(1))
	assert.Equal(t, 0, p.Len())
}
