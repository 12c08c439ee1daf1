package resource

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

func TestCollection_ListCachesAfterFirstFetch(t *testing.T) {
	var calls atomic.Int32
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1, 2, 3}, nil
	}, 0, nil)

	_, ok := c.Peek()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		got, err := c.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	}
	assert.Equal(t, int32(1), calls.Load())

	cached, ok := c.Peek()
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, cached)
}

func TestCollection_ReturnsCopies(t *testing.T) {
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		return []int{1, 2}, nil
	}, 0, nil)
	got, err := c.List(context.Background())
	require.NoError(t, err)
	got[0] = 99

	again, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, again)
}

func TestCollection_NilFetchIsEmptyNotUncached(t *testing.T) {
	c := NewCollection("nums", func(context.Context) ([]int, error) { return nil, nil }, 0, nil)
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.True(t, c.Loaded())
}

func TestCollection_ConcurrentCallersShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{7}, nil
	}, 0, nil)

	var wg sync.WaitGroup
	results := make([][]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.List(context.Background())
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []int{7}, r)
	}
}

func TestCollection_FetchErrorIsNotCached(t *testing.T) {
	fail := true
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []int{1}, nil
	}, 0, nil)

	_, err := c.List(context.Background())
	require.EqualError(t, err, "boom")
	assert.False(t, c.Loaded())

	fail = false
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestCollection_InvalidateForcesRefetch(t *testing.T) {
	version := 1
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		return []int{version}, nil
	}, 0, nil)

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)

	version = 2
	c.Invalidate()
	assert.False(t, c.Loaded())

	got, err = c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)
	assert.Equal(t, 2, c.Fetches())
}

func TestCollection_FetchStartedBeforeInvalidateIsNotCached(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		if first.CompareAndSwap(true, false) {
			close(started)
			<-release
			return []int{1}, nil
		}
		return []int{2}, nil
	}, 0, nil)

	done := make(chan []int)
	go func() {
		got, _ := c.Refresh(context.Background())
		done <- got
	}()
	<-started
	c.Invalidate()
	close(release)

	assert.Equal(t, []int{1}, <-done)
	assert.False(t, c.Loaded(), "pre-invalidation fetch must not repopulate the cache")

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)
}

func TestCollection_StaleServesCachedAndRefreshes(t *testing.T) {
	var version atomic.Int32
	version.Store(1)
	c := NewCollection("nums", func(context.Context) ([]int, error) {
		return []int{int(version.Load())}, nil
	}, time.Minute, nil)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	c.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)

	version.Store(2)
	clockMu.Lock()
	clock = clock.Add(2 * time.Minute)
	clockMu.Unlock()

	got, err = c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got, "stale data is served while refreshing")

	assert.Eventually(t, func() bool {
		cached, ok := c.Peek()
		return ok && cached[0] == 2
	}, time.Second, 5*time.Millisecond)
}

func TestCollection_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	release := make(chan struct{})
	c := NewCollection("nums", func(ctx context.Context) ([]int, error) {
		<-release
		return []int{5}, ctx.Err()
	}, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		_, err := c.List(ctx)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	assert.Eventually(t, c.Loaded, time.Second, 5*time.Millisecond)
}
