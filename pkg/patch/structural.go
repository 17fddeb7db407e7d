package patch

import (
	"github.com/go-vitrine/vitrine/pkg/diff"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// ApplyToTree is the pure structural core of the patch applier: it mutates
// the live tree to match an edit script without touching view handles or
// layout. Re-applying diff.Diff(old, new) to a copy of old must produce a
// tree value-equal to new.
//
// Operations referencing unknown ids are skipped; the returned count is the
// number of operations actually applied.
func ApplyToTree(script *diff.EditScript, live *tree.Node) int {
	if script == nil || live == nil {
		return 0
	}
	index := tree.Index(live)
	applied := 0
	for _, op := range script.Ops {
		if applyStructuralOp(op, index) {
			applied++
		}
	}
	return applied
}

func applyStructuralOp(op diff.Op, index map[string]*tree.Node) bool {
	switch op.Kind {
	case diff.OpUpdate:
		node := index[op.ID]
		if node == nil {
			return false
		}
		updateNode(node, op, index)
		return true

	case diff.OpInsert:
		parent := index[op.ParentID]
		if parent == nil || op.Node == nil {
			return false
		}
		subtree := op.Node.CloneTree()
		parent.InsertChild(subtree, op.Index)
		addToIndex(subtree, index)
		return true

	case diff.OpDelete:
		node := index[op.ID]
		if node == nil {
			return false
		}
		if parent := node.Parent(); parent != nil {
			parent.RemoveChild(node)
		}
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
		return true

	case diff.OpReplace:
		node := index[op.ID]
		if node == nil || op.Node == nil {
			return false
		}
		replacement := op.Node.CloneTree()
		parent := node.Parent()
		if parent == nil {
			// Root replace: the caller holds the root pointer, so graft the
			// replacement's content onto the existing node instead.
			removeFromIndex(node, index)
			graftRoot(node, replacement)
			addToIndex(node, index)
			return true
		}
		at := parent.IndexOf(node)
		parent.RemoveChild(node)
		parent.InsertChild(replacement, at)
		removeFromIndex(node, index)
		addToIndex(replacement, index)
		return true
	}
	return false
}

// updateNode copies the changed style and bindings onto the existing live
// node, preserving its identity-carrying state.
func updateNode(node *tree.Node, op diff.Op, index map[string]*tree.Node) {
	if op.StyleChanges != nil {
		node.Style = *op.StyleChanges
	}
	for key, value := range op.BindingChanges {
		if value == nil {
			delete(node.Bindings, key)
			continue
		}
		if node.Bindings == nil {
			node.Bindings = make(map[string]any)
		}
		node.Bindings[key] = value
	}
	if op.NewID != "" && op.NewID != node.ID {
		delete(index, node.ID)
		node.ID = op.NewID
		index[node.ID] = node
	}
}

// graftRoot rewrites a root node in place with the replacement's identity,
// properties and children.
func graftRoot(root, replacement *tree.Node) {
	root.ID = replacement.ID
	root.Kind = replacement.Kind
	root.Style = replacement.Style
	root.Bindings = replacement.Bindings
	root.Events = replacement.Events
	root.ViewHandle = nil
	for root.ChildCount() > 0 {
		root.RemoveChildAt(0)
	}
	for replacement.ChildCount() > 0 {
		root.AppendChild(replacement.RemoveChildAt(0))
	}
}

func addToIndex(root *tree.Node, index map[string]*tree.Node) {
	root.Walk(func(n *tree.Node) bool {
		index[n.ID] = n
		return true
	})
}

func removeFromIndex(root *tree.Node, index map[string]*tree.Node) {
	root.Walk(func(n *tree.Node) bool {
		delete(index, n.ID)
		return true
	})
}
