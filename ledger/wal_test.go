package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAL_FlushesQueuedWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	w := NewWAL(10, 10*time.Millisecond, nil)
	w.Start()

	w.Write(path, map[string]float64{"peak_equity": 1000})
	w.Write(path, map[string]float64{"peak_equity": 1100})

	// Stop drains whatever remains, so the last write always lands.
	w.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1100.0, got["peak_equity"])

	m := w.Metrics()
	assert.Equal(t, uint64(2), m.FlushOK)
	assert.False(t, m.BacklogHit)
}

func TestWAL_FullQueueDropsWithoutBlocking(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	// Never started: nothing drains, so the queue saturates.
	w := NewWAL(2, time.Hour, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			w.Write(path, map[string]int{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked on a full queue")
	}

	m := w.Metrics()
	assert.True(t, m.BacklogHit)
	assert.Equal(t, uint64(3), m.Dropped)
	assert.Equal(t, 2, m.QueueLen)
}

func TestWAL_WriteAfterStopDropsWithLatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	w := NewWAL(10, 10*time.Millisecond, nil)
	w.Start()
	w.Stop()

	// Nothing drains the queue anymore; the write must be rejected
	// loudly, not enqueued and silently lost.
	w.Write(path, map[string]int{"seq": 1})

	m := w.Metrics()
	assert.Equal(t, uint64(1), m.Dropped)
	assert.True(t, m.BacklogHit)
	assert.Equal(t, 0, m.QueueLen)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWAL_SamePathWritesFlushInOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	w := NewWAL(100, time.Hour, nil)

	for i := 1; i <= 20; i++ {
		w.Write(path, map[string]int{"seq": i})
	}
	w.Start()
	w.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 20, got["seq"])
}
