// Package render composes the reconciliation core into a renderer: an
// explicit context object owning the layout adapter, patch applier,
// pipeline pool and per-view state caches. Nothing in the core is a
// process-wide singleton; whoever composes the system owns the Renderer.
package render

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/go-vitrine/vitrine/pkg/config"
	"github.com/go-vitrine/vitrine/pkg/diff"
	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/host"
	"github.com/go-vitrine/vitrine/pkg/layout"
	"github.com/go-vitrine/vitrine/pkg/patch"
	"github.com/go-vitrine/vitrine/pkg/pipeline"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// Options configures a Renderer. Materializer is required; everything else
// has a usable default.
type Options struct {
	Registry     *tree.Registry
	Parser       host.Parser
	Binder       host.Binder
	Materializer host.Materializer
	Recycler     host.Recycler
	Measurer     host.Measurer
	Copiers      patch.CopierTable
	Config       config.Resolved
	Logger       *zap.Logger
}

// viewState is everything the renderer remembers about one rendered view:
// the live tree backing its widgets, the unbound prototype used to build
// replacement trees, and the last data it was bound with.
type viewState struct {
	live      *tree.Node
	prototype *tree.Node
	lastData  map[string]any
	handle    any
}

// Renderer is the façade over the reconciliation and rendering pipeline.
//
// The per-view caches are read and written only from the UI goroutine;
// background pipelines own their trees exclusively until flushed.
type Renderer struct {
	registry  *tree.Registry
	parser    host.Parser
	binder    host.Binder
	recycler  host.Recycler
	adapter   *layout.Adapter
	applier   *patch.Applier
	pipelines *pipeline.Pool

	views      *lru.Cache[string, *viewState]
	prototypes *lru.Cache[string, *tree.Node]

	guard  uiGuard
	logger *zap.Logger
}

// New builds a renderer from options.
func New(opts Options) (*Renderer, error) {
	if opts.Materializer == nil {
		return nil, fmt.Errorf("render: Options.Materializer is required")
	}
	if opts.Registry == nil {
		opts.Registry = tree.NewRegistry()
	}
	if opts.Recycler == nil {
		opts.Recycler = host.NopRecycler{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config == (config.Resolved{}) {
		opts.Config = config.Defaults()
	}

	r := &Renderer{
		registry: opts.Registry,
		parser:   opts.Parser,
		binder:   opts.Binder,
		recycler: opts.Recycler,
		logger:   opts.Logger,
	}

	pool := layout.NewNodePool(opts.Config.WarmNodes)
	r.adapter = layout.NewAdapter(pool, opts.Registry, opts.Measurer, opts.Logger)
	r.applier = patch.NewApplier(r.adapter, opts.Registry, opts.Materializer, opts.Recycler, opts.Copiers, opts.Logger)
	r.applier.Debug = DebugMode
	r.applier.AssertUIThread = r.guard.assert

	flushTimeout := opts.Config.FlushTimeout
	r.pipelines = pipeline.NewPool(opts.Config.PoolCapacity, func() *pipeline.Pipeline {
		return pipeline.New(r.adapter, r.applier, opts.Binder, flushTimeout, opts.Logger)
	})

	views, err := lru.NewWithEvict(opts.Config.ViewCache, func(_ string, st *viewState) {
		// Evicted views hand their widgets back to the recycle pool.
		r.recycler.Recycle(st.live)
	})
	if err != nil {
		return nil, err
	}
	r.views = views

	prototypes, err := lru.New[string, *tree.Node](opts.Config.PrototypeCache)
	if err != nil {
		return nil, err
	}
	r.prototypes = prototypes
	return r, nil
}

// AttachUIThread records the calling goroutine as the single goroutine
// allowed to mutate view handles. Call it once from the host's UI loop
// before the first flush; in debug mode violations panic.
func (r *Renderer) AttachUIThread() {
	r.guard.attach()
}

// Adapter exposes the layout adapter, mainly for pool inspection in tests.
func (r *Renderer) Adapter() *layout.Adapter {
	return r.adapter
}

// RenderTemplate parses (or retrieves from the prototype cache) a raw
// template, then renders it. The viewID keys the renderer's per-view state
// and must be stable across updates of the same on-screen view.
func (r *Renderer) RenderTemplate(viewID string, raw []byte, data map[string]any, container geometry.Size) (any, error) {
	if r.parser == nil {
		return nil, fmt.Errorf("render: no template parser configured")
	}
	key := string(raw)
	prototype, ok := r.prototypes.Get(key)
	if !ok {
		parsed, err := r.parser.Parse(raw)
		if err != nil || parsed == nil {
			return nil, fmt.Errorf("render: template parse failed: %w", err)
		}
		r.prototypes.Add(key, parsed)
		prototype = parsed
	}
	return r.Render(viewID, prototype.CloneTree(), data, container)
}

// Render is the synchronous single-thread convenience wrapper: bind,
// lay out and materialize the tree on the calling goroutine (which must be
// the UI goroutine) and return the root view handle.
//
// The renderer takes ownership of root; callers keep their own copy if they
// need one.
func (r *Renderer) Render(viewID string, root *tree.Node, data map[string]any, container geometry.Size) (any, error) {
	if root == nil {
		return nil, fmt.Errorf("render: nil tree for view %q", viewID)
	}
	prototype := root.CloneTree()

	task := r.Start(viewID, root, data, container)
	handle := task.SyncFlush()
	if handle == nil {
		// The synchronous wrapper promises a usable handle; a nil one means
		// background preparation timed out, failed or materialized nothing.
		return nil, fmt.Errorf("render: no root view handle for view %q (background preparation timed out or failed)", viewID)
	}

	if st, ok := r.views.Get(viewID); ok {
		st.prototype = prototype
		st.lastData = data
	}
	return handle, nil
}

// Update re-binds the view's template prototype with new data, diffs it
// against the live tree and applies the edit script. It returns the number
// of applied edit operations. Must run on the UI goroutine.
func (r *Renderer) Update(viewID string, newData map[string]any, container geometry.Size) (int, error) {
	st, ok := r.views.Get(viewID)
	if !ok || st.prototype == nil {
		return 0, fmt.Errorf("render: unknown view %q", viewID)
	}
	next := st.prototype.CloneTree()
	if r.binder != nil {
		if err := r.binder.Bind(newData, next); err != nil {
			return 0, fmt.Errorf("render: bind failed for view %q: %w", viewID, err)
		}
	}
	script := diff.Diff(st.live, next)
	applied := r.applier.Apply(script, st.live, container)
	st.lastData = newData
	return applied, nil
}

// QuickUpdate is the shape-preserving fast path: bound values are refreshed
// in place without diffing. The caller guarantees the tree shape did not
// change; that precondition is not verified.
func (r *Renderer) QuickUpdate(viewID string, newData map[string]any, container geometry.Size) error {
	st, ok := r.views.Get(viewID)
	if !ok {
		return fmt.Errorf("render: unknown view %q", viewID)
	}
	if err := r.applier.QuickUpdate(st.live, newData, r.binder, container); err != nil {
		return err
	}
	st.lastData = newData
	return nil
}

// Task is one in-flight asynchronous render. Flush it from the UI
// goroutine; releasing the pipeline back to the pool happens on the first
// flush or cancel.
type Task struct {
	renderer *Renderer
	viewID   string
	pl       *pipeline.Pipeline
	done     bool
}

// Start kicks off background bind+layout for the tree and returns the task
// handle. The renderer records the view state immediately so a subsequent
// flush lands in the right cache slot.
func (r *Renderer) Start(viewID string, root *tree.Node, data map[string]any, container geometry.Size) *Task {
	st := &viewState{live: root, lastData: data}
	r.views.Add(viewID, st)

	pl := r.pipelines.Acquire()
	pl.Start(root, data, container)
	return &Task{renderer: r, viewID: viewID, pl: pl}
}

// SyncFlush blocks briefly for background work, executes the queued
// materialization on the calling goroutine and returns the root view
// handle.
func (t *Task) SyncFlush() any {
	if t.done {
		return t.handle()
	}
	handle := t.pl.SyncFlush()
	t.finish(handle)
	return handle
}

// ForceFlush executes whatever the background task has queued so far.
func (t *Task) ForceFlush() any {
	if t.done {
		return t.handle()
	}
	handle := t.pl.ForceFlush()
	t.finish(handle)
	return handle
}

// Cancel abandons the task at its next checkpoint. Already-queued
// operations may still flush; callers needing hard cancellation discard
// the resulting view handle.
func (t *Task) Cancel() {
	if t.done {
		return
	}
	t.pl.Cancel()
	t.finish(nil)
}

func (t *Task) finish(handle any) {
	t.done = true
	if st, ok := t.renderer.views.Get(t.viewID); ok && handle != nil {
		st.handle = handle
	}
	t.renderer.pipelines.Release(t.pl)
	t.pl = nil
}

func (t *Task) handle() any {
	if st, ok := t.renderer.views.Get(t.viewID); ok {
		return st.handle
	}
	return nil
}

// Release drops a view's cached state, recycling its live widgets.
func (r *Renderer) Release(viewID string) {
	r.views.Remove(viewID) // eviction callback recycles
}
