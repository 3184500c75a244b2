// Package queue implements the bounded-concurrency priority queue that
// every façade call passes through: spec.md §4.5. A single dispatcher
// goroutine pops the highest-priority pending request and hands it to a
// worker goroutine as soon as a semaphore permit is free; it never waits
// for a request to finish before picking up the next one.
package queue

import (
	"container/heap"
	"context"
	"sync"

	"mt5bridge/pkg/apperror"
)

// Metrics is the minimal surface the queue needs from pkg/metrics. Queue
// stays importable without pulling in Prometheus; a caller wires a real
// implementation (or leaves it nil, in which case calls are no-ops).
type Metrics interface {
	SetQueueDepth(queued, inFlight int)
	IncRejected()
	IncCoalesced()
}

type noopMetrics struct{}

func (noopMetrics) SetQueueDepth(int, int) {}
func (noopMetrics) IncRejected()           {}
func (noopMetrics) IncCoalesced()          {}

// Work is the unit of work a caller submits.
type Work func(ctx context.Context) (any, error)

// future is the shared result slot for a submitted (or coalesced) item.
type future struct {
	done   chan struct{}
	result any
	err    error
}

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

func (f *future) complete(result any, err error) {
	f.result, f.err = result, err
	close(f.done)
}

// wait blocks until the future resolves or ctx is cancelled.
func (f *future) wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// item is one pending unit of work in the priority heap.
type item struct {
	operation   string
	priority    int
	seq         int64
	coalesceKey string
	work        Work
	fut         *future
	index       int
}

type priorityHeap []*item

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	// Priority ties resolve by insertion order (lower seq = earlier).
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *priorityHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue is a bounded-concurrency, coalescing priority queue.
type Queue struct {
	maxDepth int
	sem      chan struct{}
	metrics  Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	items    priorityHeap
	coalesce map[string]*future
	nextSeq  int64
	closed   bool
	inFlight int

	wg sync.WaitGroup
}

// New creates a Queue with the given concurrency bound and depth limit.
// maxDepth <= 0 means unbounded.
func New(maxConcurrent, maxDepth int, metrics Metrics) *Queue {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	q := &Queue{
		maxDepth: maxDepth,
		sem:      make(chan struct{}, maxConcurrent),
		metrics:  metrics,
		coalesce: make(map[string]*future),
	}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(1)
	go q.dispatch()
	return q
}

// Submit enqueues work under operation/priority and blocks until it
// completes or ctx is cancelled. If coalesceKey is non-empty and a request
// with the same key is already pending or running, the caller shares that
// request's future instead of enqueuing a new one. Orders must never be
// coalesced — callers pass an empty coalesceKey for order submissions.
func (q *Queue) Submit(ctx context.Context, operation string, priority int, coalesceKey string, work Work) (any, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, apperror.New(apperror.CodeNotAvailable, "queue is shut down")
	}

	if coalesceKey != "" {
		if existing, ok := q.coalesce[coalesceKey]; ok {
			q.mu.Unlock()
			q.metrics.IncCoalesced()
			return existing.wait(ctx)
		}
	}

	if q.maxDepth > 0 && len(q.items) >= q.maxDepth {
		q.mu.Unlock()
		q.metrics.IncRejected()
		return nil, apperror.ErrQueueFull
	}

	fut := newFuture()
	it := &item{
		operation:   operation,
		priority:    priority,
		seq:         q.nextSeq,
		coalesceKey: coalesceKey,
		work:        work,
		fut:         fut,
	}
	q.nextSeq++
	heap.Push(&q.items, it)
	if coalesceKey != "" {
		q.coalesce[coalesceKey] = fut
	}
	q.metrics.SetQueueDepth(len(q.items), q.inFlight)
	q.cond.Signal()
	q.mu.Unlock()

	return fut.wait(ctx)
}

// dispatch is the single background loop: acquire a semaphore permit, pop
// the highest-priority item, and spawn a worker goroutine without waiting
// for it to finish. Items wait in the heap until a permit is free, so they
// count against maxDepth and are ordered by priority until dispatched.
func (q *Queue) dispatch() {
	defer q.wg.Done()
	for {
		q.sem <- struct{}{}
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed && len(q.items) == 0 {
			q.mu.Unlock()
			<-q.sem
			return
		}
		it := heap.Pop(&q.items).(*item)
		q.inFlight++
		q.metrics.SetQueueDepth(len(q.items), q.inFlight)
		q.mu.Unlock()

		q.wg.Add(1)
		go q.run(it)
	}
}

func (q *Queue) run(it *item) {
	defer q.wg.Done()
	defer func() { <-q.sem }()

	result, err := it.work(context.Background())
	it.fut.complete(result, err)

	q.mu.Lock()
	q.inFlight--
	if it.coalesceKey != "" {
		delete(q.coalesce, it.coalesceKey)
	}
	q.metrics.SetQueueDepth(len(q.items), q.inFlight)
	q.mu.Unlock()
}

// Shutdown stops the dispatcher and waits for all in-flight work to drain.
// No new items are admitted once Shutdown has been called.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.closed = true
	q.coalesce = make(map[string]*future)
	q.cond.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
}

// Depth returns the current count of pending (not yet dispatched) items.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight returns the count of items currently being worked.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}
