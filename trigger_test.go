package greenhub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// A Trigger pulled from a goroutine outside any Hub wakes a task blocked in
// Wait — the one legal cross-thread touch of Hub state (spec §5).
func TestTriggerWaitAcrossGoroutine(t *testing.T) {
	h := NewHub()
	tr, err := NewTrigger(h)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	go func() {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, tr.Pull())
	}()

	var waitErr error
	start := time.Now()
	h.Go(func(tk *Task) error {
		waitErr = tr.Wait(tk, 500*time.Millisecond)
		return nil
	})
	require.NoError(t, h.Run())
	elapsed := time.Since(start)

	require.NoError(t, waitErr)
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

// Wait times out if nothing ever pulls the trigger.
func TestTriggerWaitTimeout(t *testing.T) {
	h := NewHub()
	tr, err := NewTrigger(h)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	var waitErr error
	h.Go(func(tk *Task) error {
		waitErr = tr.Wait(tk, 15*time.Millisecond)
		return nil
	})
	require.NoError(t, h.Run())
	assert.ErrorIs(t, waitErr, ErrTimeout)
}

// Pulling twice before a single Wait coalesces into one wakeup: the second
// pulled byte stays buffered for whichever Wait call drains it next, rather
// than being lost.
func TestTriggerPullCoalesces(t *testing.T) {
	h := NewHub()
	tr, err := NewTrigger(h)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	require.NoError(t, tr.Pull())
	require.NoError(t, tr.Pull())

	var waits int
	h.Go(func(tk *Task) error {
		if err := tr.Wait(tk, 50*time.Millisecond); err != nil {
			return err
		}
		waits++
		return nil
	})
	require.NoError(t, h.Run())
	assert.Equal(t, 1, waits)
}

// Close releases both descriptors; subsequent Wait/Pull report EBADF rather
// than operating on a closed fd.
func TestTriggerCloseIsIdempotentAndRejectsAfter(t *testing.T) {
	h := NewHub()
	tr, err := NewTrigger(h)
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	assert.ErrorIs(t, tr.Pull(), unix.EBADF)

	var waitErr error
	h.Go(func(tk *Task) error {
		waitErr = tr.Wait(tk, NoDeadline)
		return nil
	})
	require.NoError(t, h.Run())
	assert.ErrorIs(t, waitErr, unix.EBADF)
}
