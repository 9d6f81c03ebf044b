package application

import (
	"context"
	"sync"
)

// PendingWrite resolves once a queued profile write has finished.
type PendingWrite struct {
	done chan struct{}
	err  error
}

func newPendingWrite() *PendingWrite {
	return &PendingWrite{done: make(chan struct{})}
}

func resolvedWrite(err error) *PendingWrite {
	w := newPendingWrite()
	w.resolve(err)
	return w
}

func (w *PendingWrite) resolve(err error) {
	w.err = err
	close(w.done)
}

// Done is closed when the write has completed.
func (w *PendingWrite) Done() <-chan struct{} { return w.done }

// Err is only meaningful after Done is closed.
func (w *PendingWrite) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Wait blocks until the write finishes or ctx ends. A ctx timeout does not
// cancel the write itself.
func (w *PendingWrite) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeQueue runs jobs for the same key one at a time, in submission order.
// Jobs for different keys run independently.
type writeQueue struct {
	mu    sync.Mutex
	lanes map[string]*writeLane
}

type writeLane struct {
	jobs []func()
}

func newWriteQueue() *writeQueue {
	return &writeQueue{lanes: make(map[string]*writeLane)}
}

// submit enqueues job under key before returning, so two submits from the same
// goroutine always run in call order.
func (q *writeQueue) submit(key string, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[key]; ok {
		l.jobs = append(l.jobs, job)
		return
	}
	l := &writeLane{jobs: []func(){job}}
	q.lanes[key] = l
	go q.drain(key, l)
}

func (q *writeQueue) drain(key string, l *writeLane) {
	for {
		q.mu.Lock()
		if len(l.jobs) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		job := l.jobs[0]
		l.jobs = l.jobs[1:]
		q.mu.Unlock()
		job()
	}
}
