// Package host declares the interfaces through which the rendering core
// consumes its out-of-scope collaborators: template parsing, data binding,
// content measurement, widget materialization and view recycling. The core
// never interprets template markup, binding expressions or widget specifics
// itself.
package host

import (
	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// Parser turns raw template markup into a component tree.
// A parse failure is terminal for that render call; the core never retries.
type Parser interface {
	Parse(raw []byte) (*tree.Node, error)
}

// Binder resolves declared binding expressions against runtime data,
// mutating each node's Bindings in place.
type Binder interface {
	Bind(data map[string]any, to *tree.Node) error
}

// MeasureMode describes how a measurement constraint is to be interpreted,
// following the flexbox engine's convention.
type MeasureMode uint8

const (
	// MeasureUnconstrained means the dimension is unbounded.
	MeasureUnconstrained MeasureMode = iota
	// MeasureExactly pins the dimension to the given value.
	MeasureExactly
	// MeasureAtMost caps the dimension at the given value.
	MeasureAtMost
)

// MeasureConstraints is the proposed space handed to a Measurer.
type MeasureConstraints struct {
	Width      float64
	WidthMode  MeasureMode
	Height     float64
	HeightMode MeasureMode
}

// Measurer supplies the intrinsic size of leaf content the flexbox engine
// cannot derive from style alone. It is invoked synchronously during layout
// from whichever goroutine triggered it, so implementations must be
// reentrant and safe for concurrent use.
type Measurer interface {
	Measure(node *tree.Node, constraints MeasureConstraints) geometry.Size
}

// Materializer creates and mutates the platform widgets backing the tree.
// All methods are invoked only on the UI goroutine.
type Materializer interface {
	// CreateView materializes a widget for the node and returns its handle.
	CreateView(node *tree.Node) any
	// UpdateView pushes the node's current properties onto the handle.
	UpdateView(handle any, node *tree.Node)
	// SetFrame positions and sizes the widget.
	SetFrame(handle any, frame geometry.Frame)
	// AttachChild inserts a child widget at the given index.
	AttachChild(parent, child any, index int)
	// DetachChild removes a child widget.
	DetachChild(parent, child any)
	// MoveChild repositions an already-attached child widget.
	MoveChild(parent, child any, toIndex int)
}

// Recycler is an optional optimization: instead of always creating fresh
// view handles, the patch applier and pipeline may dequeue a compatible
// recycled handle and hand dropped subtrees back.
type Recycler interface {
	// Dequeue returns a reusable handle for the kind, or nil.
	Dequeue(kind tree.Kind) any
	// Recycle takes ownership of the view handles in a dropped subtree.
	Recycle(root *tree.Node)
}

// NopRecycler is a Recycler that never reuses anything.
type NopRecycler struct{}

func (NopRecycler) Dequeue(tree.Kind) any  { return nil }
func (NopRecycler) Recycle(*tree.Node)     {}
