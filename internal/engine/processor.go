// File: internal/engine/processor.go
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/observability"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

// Operation is one queued unit of work. Run must be safe to call from a
// goroutine other than the enqueuer's.
type Operation struct {
	Name string
	Run  func(ctx context.Context) results.Result[any]
}

// OperationResult pairs an operation's outcome with its queue position.
type OperationResult struct {
	Index  int                 `json:"index"`
	Name   string              `json:"name"`
	Result results.Result[any] `json:"result"`
}

// Processor executes queued independent operations in fixed-size chunks.
// Chunks run sequentially to bound peak resource usage; operations within a
// chunk run under a concurrency limit. The OS automation bridge serializes
// per target application anyway, so the limit mainly stops subprocess pileup.
type Processor struct {
	cfg    config.Interface
	logger *zap.Logger
	bench  *observability.BenchmarkTable

	mu    sync.Mutex
	queue []Operation

	sleep func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a batch processor. The benchmark table may be nil.
func NewProcessor(cfg config.Interface, logger *zap.Logger, bench *observability.BenchmarkTable) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bench == nil {
		bench = observability.NewBenchmarkTable(cfg.Caches().BenchmarkHistory, logger)
	}
	return &Processor{
		cfg:    cfg,
		logger: logger.Named("engine"),
		bench:  bench,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-time.After(d):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Bench exposes the benchmark table.
func (p *Processor) Bench() *observability.BenchmarkTable { return p.bench }

// Enqueue appends operations to the queue.
func (p *Processor) Enqueue(ops ...Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, ops...)
}

// QueueLen reports the number of queued operations.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ClearQueue drops all queued operations without running them.
func (p *Processor) ClearQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
}

// Run executes the whole queue. With preserveOrder the results are
// positional, matching enqueue order even when operations fail; otherwise
// they arrive in completion order. The queue is cleared only after the full
// run completes; a cancelled run leaves it intact for a later attempt.
func (p *Processor) Run(ctx context.Context, preserveOrder bool) []OperationResult {
	p.mu.Lock()
	ops := make([]Operation, len(p.queue))
	copy(ops, p.queue)
	p.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	chunkSize := p.cfg.Engine().ChunkSize
	concurrency := p.cfg.Engine().Concurrency

	ordered := make([]OperationResult, len(ops))
	var completion []OperationResult
	var completionMu sync.Mutex

	for start := 0; start < len(ops); start += chunkSize {
		if ctx.Err() != nil {
			p.logger.Warn("batch run cancelled mid-way, queue retained",
				zap.Int("completed", start), zap.Int("total", len(ops)))
			return p.collect(ordered[:start], completion, preserveOrder)
		}

		end := min(start+chunkSize, len(ops))
		g, chunkCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i := start; i < end; i++ {
			idx := i
			op := ops[i]
			g.Go(func() error {
				res := p.runOne(chunkCtx, op)
				ordered[idx] = OperationResult{Index: idx, Name: op.Name, Result: res}
				completionMu.Lock()
				completion = append(completion, ordered[idx])
				completionMu.Unlock()
				// Failures are recorded, never propagated: one bad
				// operation must not cancel its chunk siblings.
				return nil
			})
		}
		_ = g.Wait()
	}

	if ctx.Err() == nil {
		p.ClearQueue()
	}
	return p.collect(ordered, completion, preserveOrder)
}

func (p *Processor) collect(ordered, completion []OperationResult, preserveOrder bool) []OperationResult {
	if preserveOrder {
		return ordered
	}
	return completion
}

// runOne executes a single operation with benchmark bookkeeping and
// hint-driven retry: transient failures get one more attempt, with backoff
// when the hint asks for it.
func (p *Processor) runOne(ctx context.Context, op Operation) results.Result[any] {
	benchID := p.bench.Start(op.Name, nil)

	res := op.Run(ctx)
	if res.IsFailure() {
		switch res.Context.RecoveryHint {
		case results.RecoveryRetry:
			p.logger.Debug("operation failed, retrying", zap.String("name", op.Name))
			res = op.Run(ctx)
		case results.RecoveryRetryWithDelay:
			p.logger.Debug("operation failed, retrying after delay", zap.String("name", op.Name))
			if err := p.sleep(ctx, p.cfg.Engine().RetryDelay); err == nil {
				res = op.Run(ctx)
			}
		}
	}

	p.bench.Complete(benchID, res.IsSuccess())
	return res
}
