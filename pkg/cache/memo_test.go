package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_MissThenHit(t *testing.T) {
	var loads atomic.Int32

	m, err := NewMemo(10, func(_ context.Context, key string) (string, error) {
		loads.Add(1)

		return "v-" + key, nil
	})
	require.NoError(t, err)

	v, hit, err := m.Get(t.Context(), "a")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "v-a", v)

	v, hit, err = m.Get(t.Context(), "a")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v-a", v)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, m.Len())
}

func TestMemo_ErrorsAreNotCached(t *testing.T) {
	var loads atomic.Int32

	loadErr := errors.New("provider down")

	m, err := NewMemo(10, func(context.Context, string) (int, error) {
		if loads.Add(1) == 1 {
			return 0, loadErr
		}

		return 7, nil
	})
	require.NoError(t, err)

	_, _, err = m.Get(t.Context(), "k")
	require.ErrorIs(t, err, loadErr)

	v, hit, err := m.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
}

func TestMemo_CoalescesConcurrentMisses(t *testing.T) {
	var loads atomic.Int32

	release := make(chan struct{})

	m, err := NewMemo(10, func(context.Context, string) (int, error) {
		loads.Add(1)
		<-release

		return 42, nil
	})
	require.NoError(t, err)

	const callers = 8

	var wg sync.WaitGroup

	results := make([]int, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			v, _, getErr := m.Get(context.Background(), "same")
			assert.NoError(t, getErr)

			results[i] = v
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestMemo_Purge(t *testing.T) {
	m, err := NewMemo(2, func(_ context.Context, key string) (string, error) { return key, nil })
	require.NoError(t, err)

	_, _, _ = m.Get(t.Context(), "a")
	_, _, _ = m.Get(t.Context(), "b")
	_, _, _ = m.Get(t.Context(), "c")
	assert.Equal(t, 2, m.Len())

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestNewMemo_InvalidSize(t *testing.T) {
	_, err := NewMemo(0, func(context.Context, string) (int, error) { return 0, nil })
	assert.Error(t, err)
}

func TestMemo_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	m, err := NewMemo(10, func(ctx context.Context, _ string) (int, error) {
		close(started)

		select {
		case <-release:
			return 9, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	require.NoError(t, err)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())

	leaderErr := make(chan error, 1)

	go func() {
		_, _, getErr := m.Get(leaderCtx, "q")
		leaderErr <- getErr
	}()

	<-started

	type result struct {
		v   int
		err error
	}

	waiter := make(chan result, 1)

	go func() {
		v, _, getErr := m.Get(context.Background(), "q")
		waiter <- result{v: v, err: getErr}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)

	res := <-waiter
	require.NoError(t, res.err)
	assert.Equal(t, 9, res.v)

	v, hit, err := m.Get(t.Context(), "q")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 9, v)
}

func TestMemo_LoadTimeout(t *testing.T) {
	m, err := NewMemo(10, func(ctx context.Context, _ string) (int, error) {
		<-ctx.Done()

		return 0, ctx.Err()
	}, WithLoadTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, _, err = m.Get(context.Background(), "slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, m.Len())
}
