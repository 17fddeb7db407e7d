// Package patch turns an edit script into concrete mutations of the live
// tree and its externally-owned view handles, preserving identity-carrying
// subtrees, then re-runs layout over the mutated tree.
package patch

import (
	"go.uber.org/zap"

	"github.com/go-vitrine/vitrine/pkg/diff"
	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/host"
	"github.com/go-vitrine/vitrine/pkg/layout"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// FieldCopier copies kind-specific fields (text content, image source,
// disabled flags) from the next node onto the live one during an update.
// The table is supplied by the widget collaborators; the core knows nothing
// about individual kinds.
type FieldCopier func(live, next *tree.Node)

// CopierTable maps node kinds to their field copiers.
type CopierTable map[tree.Kind]FieldCopier

// Applier consumes edit scripts. Structural and view-handle mutation must
// run on the UI goroutine; set AssertUIThread to enforce that in debug
// builds.
type Applier struct {
	adapter      *layout.Adapter
	registry     *tree.Registry
	materializer host.Materializer
	recycler     host.Recycler
	copiers      CopierTable
	logger       *zap.Logger

	// Debug enables placeholder views for unknown kinds; production builds
	// render them as silently-empty views.
	Debug bool
	// AssertUIThread, when set, is invoked at the top of every mutating
	// call. The render context wires the UI-goroutine check here.
	AssertUIThread func()
}

// NewApplier wires an applier. A nil recycler disables view reuse; a nil
// logger is replaced with a no-op logger.
func NewApplier(adapter *layout.Adapter, registry *tree.Registry, materializer host.Materializer, recycler host.Recycler, copiers CopierTable, logger *zap.Logger) *Applier {
	if recycler == nil {
		recycler = host.NopRecycler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		adapter:      adapter,
		registry:     registry,
		materializer: materializer,
		recycler:     recycler,
		copiers:      copiers,
		logger:       logger,
	}
}

// Apply mutates the live tree and its view handles to match the edit
// script, then recomputes layout over the whole tree and pushes changed
// frames. It returns the number of operations applied; operations naming
// unknown ids are skipped and logged, never fatal.
func (a *Applier) Apply(script *diff.EditScript, live *tree.Node, container geometry.Size) int {
	if a.AssertUIThread != nil {
		a.AssertUIThread()
	}
	if script == nil || live == nil || !script.HasDiff() {
		return 0
	}
	index := tree.Index(live)
	applied := 0
	for _, op := range script.Ops {
		if a.applyOp(op, index) {
			applied++
		} else {
			a.logger.Warn("patch: skipped op",
				zap.Stringer("kind", op.Kind), zap.String("id", op.ID))
		}
	}
	a.Relayout(live, container)
	return applied
}

func (a *Applier) applyOp(op diff.Op, index map[string]*tree.Node) bool {
	switch op.Kind {
	case diff.OpUpdate:
		node := index[op.ID]
		if node == nil {
			return false
		}
		updateNode(node, op, index)
		if copier := a.copiers[node.Kind]; copier != nil && op.Node != nil {
			copier(node, op.Node)
		}
		if node.ViewHandle != nil {
			a.materializer.UpdateView(node.ViewHandle, node)
		}
		return true

	case diff.OpInsert:
		parent := index[op.ParentID]
		if parent == nil || op.Node == nil {
			return false
		}
		subtree := op.Node.CloneTree()
		parent.InsertChild(subtree, op.Index)
		addToIndex(subtree, index)
		a.materializeSubtree(subtree)
		return true

	case diff.OpDelete:
		node := index[op.ID]
		if node == nil {
			return false
		}
		a.detachViews(node)
		if parent := node.Parent(); parent != nil {
			parent.RemoveChild(node)
		}
		a.recycler.Recycle(node)
		removeFromIndex(node, index)
		return true

	case diff.OpMove:
		node := index[op.ID]
		parent := index[op.ParentID]
		if node == nil || parent == nil {
			return false
		}
		parent.RemoveChild(node)
		parent.InsertChild(node, op.Index)
		if node.ViewHandle != nil {
			if parentHandle, ok := viewParentOf(node); ok {
				a.materializer.MoveChild(parentHandle, node.ViewHandle, viewSlot(node))
			}
		}
		return true

	case diff.OpReplace:
		node := index[op.ID]
		if node == nil || op.Node == nil {
			return false
		}
		a.detachViews(node)
		a.recycler.Recycle(node)
		replacement := op.Node.CloneTree()
		parent := node.Parent()
		if parent == nil {
			removeFromIndex(node, index)
			graftRoot(node, replacement)
			addToIndex(node, index)
			a.materializeSubtree(node)
			return true
		}
		at := parent.IndexOf(node)
		parent.RemoveChild(node)
		parent.InsertChild(replacement, at)
		removeFromIndex(node, index)
		addToIndex(replacement, index)
		a.materializeSubtree(replacement)
		return true
	}
	return false
}

// QuickUpdate is the shape-preserving fast path: bindings are re-resolved
// in place and views refreshed without running the diff engine. The
// precondition that the tree shape is unchanged is the caller's
// responsibility and is not verified here.
func (a *Applier) QuickUpdate(live *tree.Node, data map[string]any, binder host.Binder, container geometry.Size) error {
	if a.AssertUIThread != nil {
		a.AssertUIThread()
	}
	if live == nil {
		return nil
	}
	if binder != nil {
		if err := binder.Bind(data, live); err != nil {
			return err
		}
	}
	frames := a.adapter.ComputeLayout(live, container)
	live.Walk(func(n *tree.Node) bool {
		if n.ViewHandle == nil {
			return true
		}
		a.materializer.UpdateView(n.ViewHandle, n)
		if frame, ok := frames[n.ID]; ok {
			if n.NeedsFrameApply(frame) {
				a.materializer.SetFrame(n.ViewHandle, frame)
			}
			n.MarkApplied(n.Style, frame)
		}
		return true
	})
	return nil
}

// Relayout recomputes frames for the whole live tree and pushes style and
// frame changes to materialized views, skipping work memoized as already
// applied.
func (a *Applier) Relayout(live *tree.Node, container geometry.Size) {
	a.ApplyFrames(live, a.adapter.ComputeLayout(live, container))
}

// ApplyFrames pushes precomputed frames (and any pending style changes) to
// materialized views. Used by Relayout and by the pipeline, which computes
// frames on the background goroutine and applies them during flush.
func (a *Applier) ApplyFrames(live *tree.Node, frames map[string]geometry.Frame) {
	live.Walk(func(n *tree.Node) bool {
		if n.ViewHandle == nil {
			return true
		}
		frame, ok := frames[n.ID]
		if !ok {
			return true
		}
		styleDirty := n.NeedsStyleApply()
		frameDirty := n.NeedsFrameApply(frame)
		if styleDirty {
			a.materializer.UpdateView(n.ViewHandle, n)
		}
		if frameDirty {
			a.materializer.SetFrame(n.ViewHandle, frame)
		}
		if styleDirty || frameDirty {
			n.MarkApplied(n.Style, frame)
		}
		return true
	})
}

// MaterializeTree creates view handles for a freshly laid-out tree,
// creating each node's view before attaching its children. It returns the
// root view handle (the first materialized view of the subtree).
func (a *Applier) MaterializeTree(root *tree.Node) any {
	if a.AssertUIThread != nil {
		a.AssertUIThread()
	}
	a.materializeSubtree(root)
	var rootHandle any
	root.Walk(func(n *tree.Node) bool {
		if rootHandle == nil && n.ViewHandle != nil {
			rootHandle = n.ViewHandle
			return false
		}
		return rootHandle == nil
	})
	return rootHandle
}

func (a *Applier) materializeSubtree(n *tree.Node) {
	a.MaterializeNode(n)
	for _, child := range n.Children() {
		a.materializeSubtree(child)
	}
}

// MaterializeNode creates and attaches the view handle for a single node,
// assuming its ancestors' views already exist. Flattened containers and,
// outside debug builds, unknown kinds materialize nothing and return nil.
func (a *Applier) MaterializeNode(n *tree.Node) any {
	if n.ViewHandle != nil {
		return n.ViewHandle
	}
	if n.Flattenable(a.registry) {
		return nil
	}
	if n.Kind == tree.KindUnknown && !a.Debug {
		// Production builds render unrecognized kinds as silently-empty
		// views; debug builds fall through so the materializer can show a
		// placeholder.
		return nil
	}
	handle := a.recycler.Dequeue(n.Kind)
	if handle != nil {
		n.SetForceApply()
	} else {
		handle = a.materializer.CreateView(n)
	}
	if handle == nil {
		return nil
	}
	n.ViewHandle = handle
	a.materializer.UpdateView(handle, n)
	if parentHandle, ok := viewParentOf(n); ok {
		a.materializer.AttachChild(parentHandle, handle, viewSlot(n))
	}
	return handle
}

// detachViews removes the subtree's top-level materialized views from their
// view parents. Descendant views travel with their parents.
func (a *Applier) detachViews(n *tree.Node) {
	if n.ViewHandle != nil {
		if parentHandle, ok := viewParentOf(n); ok {
			a.materializer.DetachChild(parentHandle, n.ViewHandle)
		}
		return
	}
	for _, child := range n.Children() {
		a.detachViews(child)
	}
}

// viewParentOf returns the view handle of the nearest materialized
// ancestor, skipping flattened containers.
func viewParentOf(n *tree.Node) (any, bool) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.ViewHandle != nil {
			return p.ViewHandle, true
		}
	}
	return nil, false
}

// viewSlot computes a node's index among its view parent's child views.
// Flattened containers contribute their materialized descendants in place,
// so the view index and the tree index can differ.
func viewSlot(n *tree.Node) int {
	slot := 0
	current := n
	for parent := current.Parent(); parent != nil; parent = current.Parent() {
		at := parent.IndexOf(current)
		for i := 0; i < at; i++ {
			slot += countViews(parent.ChildAt(i))
		}
		if parent.ViewHandle != nil {
			return slot
		}
		current = parent
	}
	return slot
}

// countViews counts the top-level materialized views contributed by a
// subtree: a view-backed node counts as one (its descendants live inside
// it), a flattened node contributes its children's views.
func countViews(n *tree.Node) int {
	if n == nil {
		return 0
	}
	if n.ViewHandle != nil {
		return 1
	}
	total := 0
	for _, child := range n.Children() {
		total += countViews(child)
	}
	return total
}
