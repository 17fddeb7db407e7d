// Package tree defines the component tree: typed nodes with style, resolved
// data bindings and declared events, linked parent/child with exclusive
// child ownership and a non-owning parent back-reference.
package tree

import (
	"fmt"

	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/style"
)

// KeyBinding is the binding key whose value, when present, overrides the
// node id for child matching during reconciliation (list items).
const KeyBinding = "key"

// Node is one element of the component tree.
//
// A tree exclusively owns its children. The parent link is populated on
// attach and cleared on detach; it exists for lookup and event bubbling
// only and never drives lifetime.
type Node struct {
	// ID is the node's stable identity, unique within one tree snapshot.
	ID string
	// Kind is the declared type tag; immutable after construction.
	Kind Kind
	// Style is the node's box-model description, replaceable wholesale.
	Style style.Style
	// Bindings holds data values resolved by the binder collaborator.
	Bindings map[string]any
	// Events holds the event configs declared at parse time, opaque to the
	// core and immutable for the node's lifetime.
	Events map[string]any

	// ViewHandle references the materialized widget. It is externally
	// owned: the node never manages its lifecycle.
	ViewHandle any
	// LayoutResult is the last computed box, relative to the parent unless
	// a flattened ancestor's offset has been folded in.
	LayoutResult geometry.Frame

	children []*Node
	parent   *Node

	layoutHandle     any
	lastAppliedStyle *style.Style
	lastAppliedFrame *geometry.Frame
	forceApply       bool
}

// New constructs a detached node with default style.
func New(id string, kind Kind) *Node {
	return &Node{ID: id, Kind: kind, Style: style.Default()}
}

// Parent returns the node's parent, or nil for a root or detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's child list. The returned slice is the node's
// own storage; callers must not mutate it directly.
func (n *Node) Children() []*Node {
	return n.children
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// ChildAt returns the child at the given index, or nil when out of range.
func (n *Node) ChildAt(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// IndexOf returns the position of a child, or -1 when absent.
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// AppendChild attaches a child at the end of the child list, detaching it
// from any previous parent first.
func (n *Node) AppendChild(child *Node) {
	n.InsertChild(child, len(n.children))
}

// InsertChild attaches a child at the given index, detaching it from any
// previous parent first. Out-of-range indexes clamp to the list bounds.
func (n *Node) InsertChild(child *Node, index int) {
	if child == nil {
		return
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	if index < 0 {
		index = 0
	}
	if index > len(n.children) {
		index = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	child.parent = n
}

// RemoveChild detaches a child, clearing its parent link.
// Returns false if the node is not a child of n.
func (n *Node) RemoveChild(child *Node) bool {
	index := n.IndexOf(child)
	if index < 0 {
		return false
	}
	n.RemoveChildAt(index)
	return true
}

// RemoveChildAt detaches and returns the child at the given index, or nil
// when out of range.
func (n *Node) RemoveChildAt(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	child := n.children[index]
	n.children = append(n.children[:index], n.children[index+1:]...)
	child.parent = nil
	return child
}

// Key returns the node's reconciliation key: the "key" binding when
// declared (stringified), otherwise the node id.
func (n *Node) Key() string {
	if v, ok := n.Bindings[KeyBinding]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return n.ID
}

// HasExplicitKey reports whether the node declares a key binding.
func (n *Node) HasExplicitKey() bool {
	v, ok := n.Bindings[KeyBinding]
	return ok && v != nil
}

// Flattenable reports whether the node is a pure layout container with no
// visual or interactive effect of its own. Such nodes never materialize a
// view handle; their layout offset is folded into their children's frames.
// A root node never flattens: there is no ancestor view to host its
// children.
func (n *Node) Flattenable(registry *Registry) bool {
	if registry == nil || n.parent == nil {
		return false
	}
	spec := registry.Spec(n.Kind)
	return spec.Container && n.Style.Decoration.IsZero() && len(n.Events) == 0
}

// Walk visits the subtree rooted at n in pre-order. The visitor returns
// false to stop descending into the current node's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range n.children {
		child.Walk(visit)
	}
}

// Clone returns a deep value-copy of the node's style, bindings and events
// with no children and no parent. The caller is responsible for recursively
// cloning descendants and reattaching parent links; see CloneTree.
//
// View handles, layout handles and applied-state memoization do not carry
// over: a clone has never been materialized.
func (n *Node) Clone() *Node {
	clone := &Node{
		ID:    n.ID,
		Kind:  n.Kind,
		Style: n.Style,
	}
	if n.Bindings != nil {
		clone.Bindings = make(map[string]any, len(n.Bindings))
		for k, v := range n.Bindings {
			clone.Bindings[k] = v
		}
	}
	if n.Events != nil {
		clone.Events = make(map[string]any, len(n.Events))
		for k, v := range n.Events {
			clone.Events[k] = v
		}
	}
	return clone
}

// CloneTree returns a deep copy of the whole subtree with parent links
// attached.
func (n *Node) CloneTree() *Node {
	clone := n.Clone()
	for _, child := range n.children {
		clone.AppendChild(child.CloneTree())
	}
	return clone
}

// SetLayoutHandle stores the pooled layout-node handle for the duration of
// a layout pass.
func (n *Node) SetLayoutHandle(handle any) {
	n.layoutHandle = handle
}

// TakeLayoutHandle returns the layout handle and clears it, so a handle
// already released back to the pool cannot be read again.
func (n *Node) TakeLayoutHandle() any {
	h := n.layoutHandle
	n.layoutHandle = nil
	return h
}

// MarkApplied memoizes the style and frame last pushed to the view handle,
// clearing any force-apply request.
func (n *Node) MarkApplied(applied style.Style, frame geometry.Frame) {
	s := applied
	f := frame
	n.lastAppliedStyle = &s
	n.lastAppliedFrame = &f
	n.forceApply = false
}

// NeedsStyleApply reports whether the node's style differs from the last
// one applied to its view handle.
func (n *Node) NeedsStyleApply() bool {
	if n.forceApply || n.lastAppliedStyle == nil {
		return true
	}
	return !n.lastAppliedStyle.Equal(n.Style)
}

// NeedsFrameApply reports whether the given frame differs from the last one
// applied to the view handle.
func (n *Node) NeedsFrameApply(frame geometry.Frame) bool {
	if n.forceApply || n.lastAppliedFrame == nil {
		return true
	}
	return !n.lastAppliedFrame.Equal(frame)
}

// SetForceApply invalidates the applied-state memoization, used when a view
// handle is reused from a recycle pool and its properties are stale.
func (n *Node) SetForceApply() {
	n.forceApply = true
}

// Index walks the subtree and returns a flat id → node mapping.
func Index(root *Node) map[string]*Node {
	index := make(map[string]*Node)
	root.Walk(func(n *Node) bool {
		index[n.ID] = n
		return true
	})
	return index
}
