package dedup_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymcoding/invoice-web/dedup"
)

func TestGroup_ConcurrentCallersShareOneLoad(t *testing.T) {
	g := dedup.New[string]()
	release := make(chan struct{})
	var calls atomic.Int32

	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	started := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			results[i], errs[i] = g.Do(context.Background(), "k", load)
		}()
	}
	for i := 0; i < n; i++ {
		<-started
	}
	// Give every goroutine time to attach to the flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
}

func TestGroup_SharesFailure(t *testing.T) {
	g := dedup.New[int]()
	release := make(chan struct{})
	boom := errors.New("boom")
	var calls atomic.Int32

	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 0, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), "k", load)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestGroup_KeyReleasedAfterSettlement(t *testing.T) {
	g := dedup.New[int]()
	var calls atomic.Int32
	load := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	first, err := g.Do(context.Background(), "k", load)
	require.NoError(t, err)
	second, err := g.Do(context.Background(), "k", load)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestGroup_DistinctKeysDoNotShare(t *testing.T) {
	g := dedup.New[string]()

	a, _ := g.Do(context.Background(), "a", func(context.Context) (string, error) { return "A", nil })
	b, _ := g.Do(context.Background(), "b", func(context.Context) (string, error) { return "B", nil })

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
}

func TestGroup_CallerCanStopWaiting(t *testing.T) {
	g := dedup.New[string]()
	release := make(chan struct{})
	loadCtxErr := make(chan error, 1)

	go func() {
		_, _ = g.Do(context.Background(), "k", func(ctx context.Context) (string, error) {
			<-release
			loadCtxErr <- ctx.Err()
			return "done", nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func(context.Context) (string, error) {
		t.Error("second caller must join the existing flight")
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.NoError(t, <-loadCtxErr)
}

func TestGroup_LoadIgnoresCallerCancellation(t *testing.T) {
	g := dedup.New[string]()
	ctx, cancel := context.WithCancel(context.Background())

	got, err := g.Do(ctx, "k", func(loadCtx context.Context) (string, error) {
		cancel()
		return "finished", loadCtx.Err()
	})

	// The caller's ctx is cancelled while the load runs; either outcome of
	// the race is fine, but the load itself must not observe cancellation.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		return
	}
	assert.Equal(t, "finished", got)
}

func TestGroup_ZeroValueIsUsable(t *testing.T) {
	var g dedup.Group[int]

	v, err := g.Do(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
