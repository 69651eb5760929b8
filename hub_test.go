package greenhub

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// S3: Poll-writable immediate.
func TestPollWritableImmediate(t *testing.T) {
	h := NewHub()
	s1, _ := socketpair(t)

	start := time.Now()
	h.Go(func(tk *Task) error {
		return h.Poll(tk, RawFd(s1), false, true, false, 1010*time.Millisecond)
	})
	require.NoError(t, h.Run())
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

// S4: Poll-readable timeout.
func TestPollReadableTimeout(t *testing.T) {
	h := NewHub()
	s1, _ := socketpair(t)

	var gotErr error
	start := time.Now()
	h.Go(func(tk *Task) error {
		gotErr = h.Poll(tk, RawFd(s1), true, false, false, 10*time.Millisecond)
		return nil
	})
	require.NoError(t, h.Run())
	elapsed := time.Since(start)

	assert.ErrorIs(t, gotErr, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, 60*time.Millisecond)

	// Timeout removes sibling state: the fd must no longer be registered.
	assert.Equal(t, 0, h.readiness.len())
}

// Readiness coherence: after Poll(read) resumes normally, recv returns data.
func TestPollReadableThenRecv(t *testing.T) {
	h := NewHub()
	s1, s2 := socketpair(t)

	_, err := unix.Write(s2, []byte("hi"))
	require.NoError(t, err)

	var pollErr error
	h.Go(func(tk *Task) error {
		pollErr = h.Poll(tk, RawFd(s1), true, false, false, 500*time.Millisecond)
		return nil
	})
	require.NoError(t, h.Run())

	require.NoError(t, pollErr)
	buf := make([]byte, 8)
	n, err := unix.Read(s1, buf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

// S1: sleep precision.
func TestSleepPrecision(t *testing.T) {
	h := NewHub()
	start := time.Now()
	h.Go(func(tk *Task) error {
		return tk.Sleep(40 * time.Millisecond)
	})
	require.NoError(t, h.Run())
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 90*time.Millisecond)
}

// S2: call_later delivers exactly the captured args, exactly once.
func TestCallLaterArgs(t *testing.T) {
	h := NewHub()
	var got []interface{}
	target := h.Go(func(tk *Task) error {
		args, err := tk.parkAndWait()
		got = args
		return err
	})
	h.CallLater(target, 20*time.Millisecond, []interface{}{1, 2, 3, 4})
	require.NoError(t, h.Run())
	assert.Equal(t, []interface{}{1, 2, 3, 4}, got)
}

// property 7: no spurious wakeups, runs exactly once.
func TestCallLaterRunsOnce(t *testing.T) {
	h := NewHub()
	runs := 0
	target := h.Go(func(tk *Task) error {
		_, err := tk.parkAndWait()
		runs++
		return err
	})
	h.CallLater(target, 5*time.Millisecond, []interface{}{"x"})
	require.NoError(t, h.Run())
	assert.Equal(t, 1, runs)
}

// property 3: FIFO scheduling.
func TestScheduleFIFO(t *testing.T) {
	h := NewHub()
	var order []string
	for _, name := range []string{"A", "B", "C"} {
		n := name
		h.Go(func(tk *Task) error {
			order = append(order, n)
			return nil
		})
	}
	require.NoError(t, h.Run())
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

// Cooperative piggyback: a Schedule performed from inside a resumed task
// runs within the same drain.
func TestSchedulePiggyback(t *testing.T) {
	h := NewHub()
	var order []string
	var second *Task
	h.Go(func(tk *Task) error {
		order = append(order, "first")
		h.Schedule(second, nil)
		return nil
	})
	second = h.Spawn(func(tk *Task) error {
		order = append(order, "second")
		return nil
	})
	require.NoError(t, h.Run())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPollRejectsNoInterest(t *testing.T) {
	h := NewHub()
	var err error
	h.Go(func(tk *Task) error {
		err = h.Poll(tk, RawFd(0), false, false, false, NoDeadline)
		return nil
	})
	require.NoError(t, h.Run())
	assert.True(t, errors.Is(err, errNoInterestBits))
}

// Switch is a plain cooperative yield: the task resumes with no error.
func TestSwitchYieldsAndResumes(t *testing.T) {
	h := NewHub()
	resumed := false
	h.Go(func(tk *Task) error {
		tk.Switch()
		resumed = true
		return nil
	})
	require.NoError(t, h.Run())
	assert.True(t, resumed)
}

func TestTerminationWhenAllStructuresEmpty(t *testing.T) {
	h := NewHub()
	done := make(chan error, 1)
	go func() {
		done <- h.Run()
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate with nothing scheduled")
	}
}
