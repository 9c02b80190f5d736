package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// queue debounces per-path work and guarantees at most one in-flight run
// per path. A change arriving while that path is being processed marks it
// for one rerun rather than stacking runs. Total concurrency is bounded
// by a weighted semaphore.
type queue struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight map[string]bool
	rerun    map[string]bool
	closed   bool

	debounce time.Duration
	sem      *semaphore.Weighted
	run      func(id string)
	wg       sync.WaitGroup
}

func newQueue(debounce time.Duration, workers int, run func(id string)) *queue {
	if workers <= 0 {
		workers = 1
	}
	return &queue{
		timers:   make(map[string]*time.Timer),
		inflight: make(map[string]bool),
		rerun:    make(map[string]bool),
		debounce: debounce,
		sem:      semaphore.NewWeighted(int64(workers)),
		run:      run,
	}
}

// enqueue schedules id after the debounce window, resetting the window if
// already pending.
func (q *queue) enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if t, ok := q.timers[id]; ok {
		t.Reset(q.debounce)
		return
	}
	q.timers[id] = time.AfterFunc(q.debounce, func() { q.fire(id) })
}

func (q *queue) fire(id string) {
	q.mu.Lock()
	delete(q.timers, id)
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.inflight[id] {
		q.rerun[id] = true
		q.mu.Unlock()
		return
	}
	q.inflight[id] = true
	q.wg.Add(1)
	q.mu.Unlock()

	go q.work(id)
}

func (q *queue) work(id string) {
	defer q.wg.Done()
	_ = q.sem.Acquire(context.Background(), 1)
	q.run(id)
	q.sem.Release(1)

	q.mu.Lock()
	delete(q.inflight, id)
	again := q.rerun[id]
	delete(q.rerun, id)
	if again && !q.closed {
		q.inflight[id] = true
		q.wg.Add(1)
		q.mu.Unlock()
		go q.work(id)
		return
	}
	q.mu.Unlock()
}

// close stops pending timers and waits for in-flight work.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
