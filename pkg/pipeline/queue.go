// Package pipeline runs the background-compute → operation-queue →
// synchronized-flush handoff that keeps tree binding and layout off the UI
// goroutine while all visible-state mutation happens deterministically on
// it.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-vitrine/vitrine/pkg/errors"
)

// DefaultFlushTimeout is how long SyncFlush waits for background work
// before proceeding with whatever has been enqueued.
const DefaultFlushTimeout = 100 * time.Millisecond

// State is the queue's lifecycle position.
type State int32

const (
	// StateIdle means no background work is pending; flushes run
	// immediately.
	StateIdle State = iota
	// StatePreparing means background work has started and not yet
	// signalled ready.
	StatePreparing
	// StateReady means background work finished and queued its operations.
	StateReady
	// StateFlushing means queued operations are executing.
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	case StateFlushing:
		return "flushing"
	default:
		return "invalid"
	}
}

// Operation is one deferred side-effecting closure, executed during flush
// on the caller's goroutine.
type Operation struct {
	// Name identifies the operation in logs.
	Name string
	// HighPriority operations flush before normal ones; order within each
	// class stays FIFO.
	HighPriority bool
	// Root tags the operation whose result is returned from flush as the
	// root view handle. Only the first root-tagged result is kept.
	Root bool
	// Run performs the operation and optionally returns a value.
	Run func() any
}

// OpQueue is a thread-safe FIFO of deferred operations plus the
// idle → preparing → ready → flushing state machine. The ready handoff is a
// single-assignment channel close, waited on with a timeout — no condvar.
//
// Every task carries the epoch issued by MarkPreparing. Enqueue, MarkReady
// and Abort accept only the current epoch, so a background task that was
// abandoned (timed out, cancelled, or its pipeline reused) cannot feed
// operations into a later task or close its ready channel.
type OpQueue struct {
	mu        sync.Mutex
	ops       []Operation
	state     State
	epoch     uint64
	ready     chan struct{}
	signalled bool
	logger    *zap.Logger
}

// NewOpQueue returns an idle queue. A nil logger is replaced with a no-op
// logger.
func NewOpQueue(logger *zap.Logger) *OpQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpQueue{logger: logger}
}

// State returns the current lifecycle state.
func (q *OpQueue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len returns the number of queued operations.
func (q *OpQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// MarkPreparing records that background work has started, dropping any
// leftover operations and clearing the ready signal from the previous cycle.
// It returns the new task's epoch, which the task must present on every
// subsequent queue call.
func (q *OpQueue) MarkPreparing() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.epoch++
	q.ops = nil
	q.state = StatePreparing
	q.ready = make(chan struct{})
	q.signalled = false
	return q.epoch
}

// Enqueue appends a deferred operation. It reports whether the operation was
// accepted; a stale epoch is rejected.
func (q *OpQueue) Enqueue(epoch uint64, op Operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if epoch != q.epoch {
		return false
	}
	q.ops = append(q.ops, op)
	return true
}

// MarkReady signals that background work finished; any SyncFlush waiter
// wakes up. A stale epoch is rejected so an abandoned task cannot release
// a later task's flush early.
func (q *OpQueue) MarkReady(epoch uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if epoch != q.epoch {
		return false
	}
	q.state = StateReady
	q.signalLocked()
	return true
}

// SyncFlush blocks until background work signals ready (or the timeout
// elapses, which is logged as a warning), then executes every queued
// operation in FIFO order, high-priority first. It returns the result of
// the first root-tagged operation.
//
// SyncFlush must run on the single UI-mutation goroutine.
func (q *OpQueue) SyncFlush(timeout time.Duration) any {
	q.mu.Lock()
	state := q.state
	ready := q.ready
	q.mu.Unlock()

	if state == StatePreparing && ready != nil {
		if timeout <= 0 {
			timeout = DefaultFlushTimeout
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ready:
		case <-timer.C:
			q.logger.Warn("pipeline: flush timed out waiting for background work",
				zap.Duration("timeout", timeout))
			errors.Report(&errors.VitrineError{
				Op:   "pipeline.OpQueue.SyncFlush",
				Kind: errors.KindTimeout,
				Err:  fmt.Errorf("background work not ready after %v", timeout),
			})
		}
	}
	return q.flush()
}

// ForceFlush executes whatever is queued without waiting, for callers that
// already know background work is done or want best-effort partial
// rendering.
func (q *OpQueue) ForceFlush() any {
	return q.flush()
}

func (q *OpQueue) flush() any {
	q.mu.Lock()
	q.state = StateFlushing
	// The task is consumed here; late arrivals from its goroutine carry a
	// dead epoch from now on.
	q.epoch++
	ops := q.ops
	q.ops = nil
	q.mu.Unlock()

	var rootHandle any
	haveRoot := false
	run := func(op Operation) {
		result := op.Run()
		if op.Root && !haveRoot {
			rootHandle = result
			haveRoot = true
		}
	}
	for _, op := range ops {
		if op.HighPriority {
			run(op)
		}
	}
	for _, op := range ops {
		if !op.HighPriority {
			run(op)
		}
	}

	q.mu.Lock()
	q.state = StateIdle
	q.signalLocked()
	q.mu.Unlock()
	return rootHandle
}

// Reset clears pending operations and returns the queue to idle, waking any
// flush waiter so nothing blocks on work that will never arrive. The epoch
// advances, detaching any still-running background task.
func (q *OpQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.epoch++
	q.ops = nil
	q.state = StateIdle
	q.signalLocked()
}

// Abort is a Reset scoped to one task: it clears the queue only when the
// epoch is still current. Background failure paths use it so a stale task
// cannot wipe out its successor's work.
func (q *OpQueue) Abort(epoch uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if epoch != q.epoch {
		return false
	}
	q.epoch++
	q.ops = nil
	q.state = StateIdle
	q.signalLocked()
	return true
}

func (q *OpQueue) signalLocked() {
	if q.ready != nil && !q.signalled {
		close(q.ready)
		q.signalled = true
	}
}
