package pipeline

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/go-vitrine/vitrine/pkg/errors"
	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/host"
	"github.com/go-vitrine/vitrine/pkg/layout"
	"github.com/go-vitrine/vitrine/pkg/patch"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// Pipeline orchestrates one render task: a background goroutine binds data
// and computes layout over a tree it exclusively owns, then enqueues the
// materialization operations; the UI goroutine pulls them in with SyncFlush
// or ForceFlush.
//
// A pipeline is reusable (see Pool) but never concurrent with itself: Start
// must not be called again before the previous task was flushed, cancelled
// or reset.
type Pipeline struct {
	adapter *layout.Adapter
	applier *patch.Applier
	binder  host.Binder
	logger  *zap.Logger

	queue        *OpQueue
	flushTimeout time.Duration
	cancelled    atomic.Bool
}

// New creates a pipeline. A non-positive flush timeout uses
// DefaultFlushTimeout; a nil logger is replaced with a no-op logger.
func New(adapter *layout.Adapter, applier *patch.Applier, binder host.Binder, flushTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		adapter:      adapter,
		applier:      applier,
		binder:       binder,
		logger:       logger,
		queue:        NewOpQueue(logger),
		flushTimeout: flushTimeout,
	}
}

// Queue exposes the operation queue, mainly for state inspection in tests.
func (p *Pipeline) Queue() *OpQueue {
	return p.queue
}

// Start kicks off background work for the given tree. The pipeline takes
// exclusive ownership of root until the task completes or is cancelled.
func (p *Pipeline) Start(root *tree.Node, data map[string]any, container geometry.Size) {
	epoch := p.queue.MarkPreparing()
	go p.prepare(epoch, root, data, container)
}

// prepare runs on the background goroutine. The cancellation flag is
// checked at each checkpoint (bind, layout, enqueue) before doing further
// work or touching anything destined for the UI goroutine. Every queue call
// carries the task's epoch: once the pipeline has been flushed, reset or
// reused, this task's epoch is dead and the queue rejects it, so a task
// outliving its flush cannot contaminate its successor.
func (p *Pipeline) prepare(epoch uint64, root *tree.Node, data map[string]any, container geometry.Size) {
	defer errors.RecoverWithCallback("pipeline.Pipeline.prepare", func(any) {
		p.queue.Abort(epoch)
	})

	if p.checkCancelled("bind", epoch) {
		return
	}
	if root == nil {
		p.queue.Abort(epoch)
		return
	}
	if p.binder != nil {
		if err := p.binder.Bind(data, root); err != nil {
			errors.Report(&errors.VitrineError{
				Op:   "pipeline.Pipeline.prepare",
				Kind: errors.KindParse,
				Err:  err,
			})
			p.queue.Abort(epoch)
			return
		}
	}

	if p.checkCancelled("layout", epoch) {
		return
	}
	frames := p.adapter.ComputeLayout(root, container)

	if p.checkCancelled("enqueue", epoch) {
		return
	}
	// A node's materialization op always precedes the ops that attach its
	// children, so flushing in FIFO order builds the view tree top-down.
	first := true
	accepted := true
	root.Walk(func(n *tree.Node) bool {
		node := n
		accepted = p.queue.Enqueue(epoch, Operation{
			Name: "materialize " + node.ID,
			Root: first,
			Run:  func() any { return p.applier.MaterializeNode(node) },
		})
		first = false
		return accepted
	})
	if !accepted {
		return
	}
	if !p.queue.Enqueue(epoch, Operation{
		Name: "apply frames",
		Run: func() any {
			p.applier.ApplyFrames(root, frames)
			return nil
		},
	}) {
		return
	}
	p.queue.MarkReady(epoch)
}

func (p *Pipeline) checkCancelled(checkpoint string, epoch uint64) bool {
	if !p.cancelled.Load() {
		return false
	}
	p.logger.Debug("pipeline: task cancelled", zap.String("checkpoint", checkpoint))
	p.queue.Abort(epoch)
	return true
}

// SyncFlush blocks the calling goroutine (which must be the UI goroutine)
// until background work signals ready or the configured timeout elapses,
// then executes the queued operations and returns the root view handle.
func (p *Pipeline) SyncFlush() any {
	return p.queue.SyncFlush(p.flushTimeout)
}

// ForceFlush executes whatever is queued without waiting.
func (p *Pipeline) ForceFlush() any {
	return p.queue.ForceFlush()
}

// Cancel stops the task at its next checkpoint. Cancelling after the task
// signalled ready is a no-op for already-queued operations: a flush may
// still briefly materialize then-stale content, and callers needing hard
// cancellation must discard the resulting view handle themselves.
func (p *Pipeline) Cancel() {
	p.cancelled.Store(true)
	if p.queue.State() == StatePreparing {
		p.queue.Reset()
	}
}

// Reset clears any queued work and the cancellation flag so the pipeline
// can be reused for a new task.
func (p *Pipeline) Reset() {
	p.queue.Reset()
	p.cancelled.Store(false)
}
