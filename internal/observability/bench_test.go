// File: internal/observability/bench_test.go
package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBenchmarkLifecycle(t *testing.T) {
	table := NewBenchmarkTable(16, zap.NewNop())
	now := time.Unix(10000, 0)
	table.SetClock(func() time.Time { return now })

	id := table.Start("resolve", map[string]any{"selector": "#login"})
	b, ok := table.Get(id)
	require.True(t, ok)
	assert.Equal(t, "resolve", b.Name)
	assert.False(t, b.Completed())
	assert.Nil(t, b.Success)

	now = now.Add(120 * time.Millisecond)
	table.Complete(id, true)

	b, ok = table.Get(id)
	require.True(t, ok)
	assert.True(t, b.Completed())
	assert.Equal(t, 120*time.Millisecond, b.Duration)
	require.NotNil(t, b.Success)
	assert.True(t, *b.Success)
}

func TestBenchmarkCompleteIsIdempotent(t *testing.T) {
	table := NewBenchmarkTable(16, zap.NewNop())
	now := time.Unix(10000, 0)
	table.SetClock(func() time.Time { return now })

	id := table.Start("click", nil)
	now = now.Add(time.Second)
	table.Complete(id, false)

	// A second call must not overwrite the first outcome.
	now = now.Add(time.Hour)
	table.Complete(id, true)

	b, _ := table.Get(id)
	assert.Equal(t, time.Second, b.Duration)
	assert.False(t, *b.Success)

	// Unknown ids are ignored.
	table.Complete("no-such-id", true)
}

func TestBenchmarkTableEvictsOldest(t *testing.T) {
	table := NewBenchmarkTable(3, zap.NewNop())

	first := table.Start("op-0", nil)
	var rest []string
	for i := 1; i < 4; i++ {
		rest = append(rest, table.Start("op", nil))
	}

	assert.Equal(t, 3, table.Len())
	_, ok := table.Get(first)
	assert.False(t, ok, "the oldest record is dropped past capacity")
	for _, id := range rest {
		_, ok := table.Get(id)
		assert.True(t, ok)
	}
}

func TestBenchmarkHistoryOrderAndClear(t *testing.T) {
	table := NewBenchmarkTable(16, zap.NewNop())
	for _, name := range []string{"a", "b", "c"} {
		id := table.Start(name, nil)
		table.Complete(id, true)
	}

	history := table.History()
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].Name)
	assert.Equal(t, "c", history[2].Name)

	table.Clear()
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.History())
}
