package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mt5bridge/pkg/apperror"
)

func TestSubmitReturnsResult(t *testing.T) {
	q := New(2, 10, nil)
	defer q.Shutdown()

	result, err := q.Submit(context.Background(), "symbol_info", 2, "", func(ctx context.Context) (any, error) {
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %v, want ok", result)
	}
}

func TestSubmitPropagatesWorkError(t *testing.T) {
	q := New(2, 10, nil)
	defer q.Shutdown()

	sentinel := errors.New("boom")
	_, err := q.Submit(context.Background(), "op", 2, "", func(ctx context.Context) (any, error) {
		return nil, sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
}

func TestQueueFullReturnsBackpressureError(t *testing.T) {
	q := New(1, 1, nil)
	defer q.Shutdown()

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Submit(context.Background(), "slow", 2, "", func(ctx context.Context) (any, error) {
			<-block
			return nil, nil
		})
	}()

	// give the dispatcher a moment to pick up the slow item and occupy the
	// single concurrency slot, then fill the one-deep queue.
	time.Sleep(20 * time.Millisecond)

	fullCh := make(chan struct{})
	go func() {
		q.Submit(context.Background(), "queued", 2, "", func(ctx context.Context) (any, error) {
			<-block
			return nil, nil
		})
		close(fullCh)
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := q.Submit(context.Background(), "rejected", 2, "", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, apperror.ErrQueueFull) {
		t.Errorf("error = %v, want ErrQueueFull", err)
	}

	close(block)
	wg.Wait()
	<-fullCh
}

func TestCoalescingSharesFuture(t *testing.T) {
	q := New(4, 10, nil)
	defer q.Shutdown()

	var calls int32
	work := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r, _ := q.Submit(context.Background(), "copy_rates_from", 2, "coalesce-eurusd", work)
			results[idx] = r
		}(i)
	}
	wg.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("work was invoked %d times, want exactly 1 under coalescing", calls)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("result[%d] = %v, want shared", i, r)
		}
	}
}

func TestHigherPriorityDispatchedFirst(t *testing.T) {
	q := New(1, 10, nil)
	defer q.Shutdown()

	block := make(chan struct{})
	// Occupy the single concurrency slot so subsequent submissions queue.
	go q.Submit(context.Background(), "occupy", 2, "", func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	time.Sleep(20 * time.Millisecond)

	var mu sync.Mutex
	var order []string

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		q.Submit(context.Background(), "low", 3, "", func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, "low")
			mu.Unlock()
			return nil, nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		q.Submit(context.Background(), "critical", 0, "", func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, "critical")
			mu.Unlock()
			return nil, nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	close(block)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "critical" {
		t.Errorf("dispatch order = %v, want critical before low", order)
	}
}

func TestShutdownDrainsInFlightWork(t *testing.T) {
	q := New(2, 10, nil)

	started := make(chan struct{})
	finished := make(chan struct{})
	go q.Submit(context.Background(), "op", 2, "", func(ctx context.Context) (any, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		close(finished)
		return nil, nil
	})

	<-started
	q.Shutdown()

	select {
	case <-finished:
	default:
		t.Error("Shutdown returned before in-flight work finished")
	}
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	q := New(1, 10, nil)
	q.Shutdown()

	_, err := q.Submit(context.Background(), "op", 2, "", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if err == nil {
		t.Error("expected an error submitting to a shut-down queue")
	}
}

func TestContextCancellationUnblocksSubmit(t *testing.T) {
	q := New(1, 10, nil)
	defer q.Shutdown()

	block := make(chan struct{})
	defer close(block)
	go q.Submit(context.Background(), "occupy", 2, "", func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Submit(ctx, "queued", 2, "", func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}
