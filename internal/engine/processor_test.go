// File: internal/engine/processor_test.go
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestProcessor(t *testing.T) (*Processor, *config.Config) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	return NewProcessor(cfg, zap.NewNop(), nil), cfg
}

func succeedOp(name string, payload any) Operation {
	return Operation{Name: name, Run: func(ctx context.Context) results.Result[any] {
		return results.OK(payload)
	}}
}

func failOp(name string, code results.Code) Operation {
	return Operation{Name: name, Run: func(ctx context.Context) results.Result[any] {
		return results.Fail[any](code, "induced failure")
	}}
}

func TestRunEmptyQueue(t *testing.T) {
	p, _ := newTestProcessor(t)
	assert.Nil(t, p.Run(context.Background(), true))
}

func TestRunPreservesOrderAcrossFailures(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Enqueue(
		succeedOp("first", "a"),
		failOp("second", results.CodeTargetNotFound),
		succeedOp("third", "c"),
		failOp("fourth", results.CodeJavaScriptError),
		succeedOp("fifth", "e"),
		succeedOp("sixth", "f"), // spills into a second chunk
	)

	out := p.Run(context.Background(), true)
	require.Len(t, out, 6)

	type summary struct {
		Index int
		Name  string
		Code  results.Code
	}
	var got []summary
	for _, r := range out {
		got = append(got, summary{Index: r.Index, Name: r.Name, Code: r.Result.Code})
	}
	want := []summary{
		{0, "first", results.CodeOK},
		{1, "second", results.CodeTargetNotFound},
		{2, "third", results.CodeOK},
		{3, "fourth", results.CodeJavaScriptError},
		{4, "fifth", results.CodeOK},
		{5, "sixth", results.CodeOK}, // failures must not stop later chunks
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "a", out[0].Result.Data)

	assert.Equal(t, 0, p.QueueLen(), "a completed run clears the queue")
}

func TestRunCompletionOrderReturnsEverything(t *testing.T) {
	p, _ := newTestProcessor(t)
	for i := 0; i < 7; i++ {
		p.Enqueue(succeedOp("op", i))
	}

	out := p.Run(context.Background(), false)
	require.Len(t, out, 7)
	seen := make(map[int]bool)
	for _, r := range out {
		seen[r.Index] = true
	}
	assert.Len(t, seen, 7, "every queued operation must appear exactly once")
}

func TestRunHonorsConcurrencyLimit(t *testing.T) {
	p, cfg := newTestProcessor(t)
	cfg.SetEngineConcurrency(2)
	cfg.SetEngineChunkSize(8)

	var inFlight, peak int64
	var mu sync.Mutex
	op := Operation{Name: "probe", Run: func(ctx context.Context) results.Result[any] {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return results.OK[any](nil)
	}}
	for i := 0; i < 8; i++ {
		p.Enqueue(op)
	}

	out := p.Run(context.Background(), true)
	require.Len(t, out, 8)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(2), "in-chunk concurrency must stay bounded")
}

func TestRunRetriesTransientFailures(t *testing.T) {
	p, _ := newTestProcessor(t)

	var attempts int32
	p.Enqueue(Operation{Name: "flaky", Run: func(ctx context.Context) results.Result[any] {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return results.Fail[any](results.CodeTimeout, "first attempt times out")
		}
		return results.OK[any]("recovered")
	}})

	out := p.Run(context.Background(), true)
	require.Len(t, out, 1)
	assert.True(t, out[0].Result.IsSuccess())
	assert.Equal(t, int32(2), attempts, "a retry hint earns exactly one more attempt")
}

func TestRunRetryWithDelayUsesBackoff(t *testing.T) {
	p, cfg := newTestProcessor(t)

	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	var attempts int32
	p.Enqueue(Operation{Name: "warming-up", Run: func(ctx context.Context) results.Result[any] {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return results.Fail[any](results.CodeElementNotVisible, "not visible yet")
		}
		return results.OK[any](nil)
	}})

	out := p.Run(context.Background(), true)
	require.Len(t, out, 1)
	assert.True(t, out[0].Result.IsSuccess())
	assert.Equal(t, []time.Duration{cfg.Engine().RetryDelay}, slept)
}

func TestRunDoesNotRetryTerminalFailures(t *testing.T) {
	p, _ := newTestProcessor(t)

	var attempts int32
	p.Enqueue(Operation{Name: "malformed", Run: func(ctx context.Context) results.Result[any] {
		atomic.AddInt32(&attempts, 1)
		return results.Fail[any](results.CodeInvalidInput, "bad request")
	}})

	out := p.Run(context.Background(), true)
	require.Len(t, out, 1)
	assert.True(t, out[0].Result.IsFailure())
	assert.Equal(t, int32(1), attempts, "not_recoverable failures get no second attempt")
}

func TestRunCancelledBetweenChunksRetainsQueue(t *testing.T) {
	p, cfg := newTestProcessor(t)
	cfg.SetEngineChunkSize(2)

	ctx, cancel := context.WithCancel(context.Background())
	p.Enqueue(
		Operation{Name: "canceller", Run: func(ctx context.Context) results.Result[any] {
			cancel()
			return results.OK[any](nil)
		}},
		succeedOp("sibling", nil),
		succeedOp("never-runs", nil),
	)

	out := p.Run(ctx, true)
	assert.Len(t, out, 2, "only the first chunk completed")
	assert.Equal(t, 3, p.QueueLen(), "a cancelled run must retain the queue")

	// A fresh context drains the retained queue.
	out = p.Run(context.Background(), true)
	assert.Len(t, out, 3)
	assert.Equal(t, 0, p.QueueLen())
}

func TestRunRecordsBenchmarks(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Enqueue(succeedOp("bench-me", nil), failOp("bench-fail", results.CodeUnknown))

	_ = p.Run(context.Background(), true)
	history := p.Bench().History()
	require.Len(t, history, 2)
	for _, b := range history {
		require.NotNil(t, b.Success)
		assert.True(t, b.Completed())
	}
}

func TestClearQueue(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Enqueue(succeedOp("a", nil), succeedOp("b", nil))
	require.Equal(t, 2, p.QueueLen())
	p.ClearQueue()
	assert.Equal(t, 0, p.QueueLen())
	assert.Nil(t, p.Run(context.Background(), true))
}
