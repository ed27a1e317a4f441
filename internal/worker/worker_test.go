package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func TestWorker_LogLines(t *testing.T) {
	started := time.Date(2024, time.March, 5, 9, 7, 1, 0, time.Local)
	message := started.Add(2 * time.Second)
	stopped := started.Add(3 * time.Second)

	sink := newFakeSink()
	r := newTestRegistry(t, sink, WithClock(fixedClock(started, message, stopped)))

	w, err := r.CreateAndStart(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Deliver(context.Background(), "hello"))
	w.RequestStop()
	waitDone(t, w)

	assert.Equal(t, []string{
		"Thread Thread-1 started at Tue Mar  5 09:07:01 2024",
		"Message: hello at Tue Mar  5 09:07:03 2024",
		"Thread Thread-1 stopped at Tue Mar  5 09:07:04 2024",
	}, sink.Lines("Thread-1"))

	info := w.Info()
	assert.Equal(t, started, info.StartedAt)
	require.NotNil(t, info.StoppedAt)
	assert.Equal(t, stopped, *info.StoppedAt)
}

func TestWorker_DoubleStartPanics(t *testing.T) {
	r := newTestRegistry(t, newFakeSink())
	w, err := r.CreateAndStart(context.Background())
	require.NoError(t, err)

	assert.Panics(t, func() {
		w.start(context.Background())
	})
}

func TestWorker_RequestStopIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, newFakeSink())
	w, err := r.CreateAndStart(context.Background())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		w.RequestStop()
		w.RequestStop()
		w.RequestStop()
	})
	waitDone(t, w)
	assert.Equal(t, StatusStopped, w.Status())
}

func TestWorker_DeliverFailure(t *testing.T) {
	sink := newFakeSink()
	r := newTestRegistry(t, sink)
	w, err := r.CreateAndStart(context.Background())
	require.NoError(t, err)

	sink.mu.Lock()
	sink.err = errors.New("io error")
	sink.mu.Unlock()

	err = w.Deliver(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrLogWrite)
	assert.Equal(t, int64(1), w.Info().LogErrors)
	assert.True(t, w.IsRunning())
}
