// Package sinktest provides a conformance test suite for logsink backends.
package sinktest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hookdeck/workerctl/internal/logsink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HarnessMaker returns a fresh, empty sink for each subtest.
type HarnessMaker func(ctx context.Context, t *testing.T) logsink.Sink

// RunConformanceTests executes the full suite against the sink built by newSink.
func RunConformanceTests(t *testing.T, newSink HarnessMaker) {
	t.Helper()

	t.Run("append and read in order", func(t *testing.T) {
		ctx := context.Background()
		sink := newSink(ctx, t)

		require.NoError(t, sink.Append(ctx, "Thread-1", "first"))
		require.NoError(t, sink.Append(ctx, "Thread-1", "second"))

		lines, err := sink.Lines(ctx, "Thread-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, lines)
	})

	t.Run("streams are isolated", func(t *testing.T) {
		ctx := context.Background()
		sink := newSink(ctx, t)

		require.NoError(t, sink.Append(ctx, "Thread-1", "one"))
		require.NoError(t, sink.Append(ctx, "Thread-2", "two"))

		lines, err := sink.Lines(ctx, "Thread-2")
		require.NoError(t, err)
		assert.Equal(t, []string{"two"}, lines)
	})

	t.Run("unknown stream", func(t *testing.T) {
		ctx := context.Background()
		sink := newSink(ctx, t)

		_, err := sink.Lines(ctx, "Thread-404")
		assert.ErrorIs(t, err, logsink.ErrLogNotFound)
	})

	t.Run("invalid name", func(t *testing.T) {
		ctx := context.Background()
		sink := newSink(ctx, t)

		for _, name := range []string{"", "..", "a/b", `a\b`} {
			assert.ErrorIs(t, sink.Append(ctx, name, "x"), logsink.ErrInvalidLogName, "name %q", name)
		}
	})

	t.Run("concurrent appends keep whole lines", func(t *testing.T) {
		ctx := context.Background()
		sink := newSink(ctx, t)

		const writers, perWriter = 8, 25
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					assert.NoError(t, sink.Append(ctx, "Thread-1", fmt.Sprintf("writer %d line %d", w, i)))
				}
			}(w)
		}
		wg.Wait()

		lines, err := sink.Lines(ctx, "Thread-1")
		require.NoError(t, err)
		require.Len(t, lines, writers*perWriter)

		seen := make(map[string]bool, len(lines))
		for _, line := range lines {
			seen[line] = true
		}
		for w := 0; w < writers; w++ {
			for i := 0; i < perWriter; i++ {
				assert.True(t, seen[fmt.Sprintf("writer %d line %d", w, i)])
			}
		}
	})
}
