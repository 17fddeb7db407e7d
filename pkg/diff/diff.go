// Package diff computes a minimal ordered edit script between two component
// trees sharing a stable identity scheme. It never fails on mismatched
// trees: a kind change degrades to a replace of the whole subtree.
package diff

import (
	"reflect"

	"github.com/go-vitrine/vitrine/pkg/style"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

// OpKind tags one edit operation.
type OpKind uint8

const (
	// OpInsert adds a new subtree at ParentID/Index.
	OpInsert OpKind = iota
	// OpDelete drops the subtree rooted at ID. Descendants are implied;
	// a deletion never emits one op per descendant.
	OpDelete
	// OpUpdate copies changed style and/or bindings onto the live node.
	OpUpdate
	// OpMove repositions an identity-preserved child to Index.
	OpMove
	// OpReplace swaps the subtree at ID for Node; emitted when kinds differ
	// and no finer-grained diff is attempted.
	OpReplace
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpUpdate:
		return "update"
	case OpMove:
		return "move"
	case OpReplace:
		return "replace"
	default:
		return "invalid"
	}
}

// Op is one edit operation. Which fields are meaningful depends on Kind:
// Node carries the inserted/replacement subtree (a reference into the new
// tree; appliers must clone before attaching), StyleChanges and
// BindingChanges carry update payloads, and a nil value in BindingChanges
// marks a removed binding key.
type Op struct {
	Kind     OpKind
	ID       string
	ParentID string
	Index    int

	Node           *tree.Node
	StyleChanges   *style.Style
	BindingChanges map[string]any
	// NewID is set on updates when the matched node's id changed (keyed
	// list items whose ids are regenerated per parse).
	NewID string
}

// EditScript is the ordered operation sequence plus aggregate counts for
// diagnostics.
type EditScript struct {
	Ops      []Op
	Inserts  int
	Deletes  int
	Updates  int
	Moves    int
	Replaces int
}

// HasDiff reports whether the script contains any operation.
func (s *EditScript) HasDiff() bool {
	return len(s.Ops) > 0
}

func (s *EditScript) push(op Op) {
	s.Ops = append(s.Ops, op)
	switch op.Kind {
	case OpInsert:
		s.Inserts++
	case OpDelete:
		s.Deletes++
	case OpUpdate:
		s.Updates++
	case OpMove:
		s.Moves++
	case OpReplace:
		s.Replaces++
	}
}

// Diff reconciles two trees. Either side may be nil: a nil old tree yields a
// pure insert of the new subtree, a nil new tree a pure delete of the old.
func Diff(old, new *tree.Node) *EditScript {
	script := &EditScript{}
	switch {
	case old == nil && new == nil:
	case old == nil:
		script.push(Op{Kind: OpInsert, ID: new.ID, ParentID: new.ID, Index: 0, Node: new})
	case new == nil:
		script.push(Op{Kind: OpDelete, ID: old.ID, ParentID: old.ID})
	default:
		diffNodes(old, new, script)
	}
	return script
}

// diffNodes diffs one matched pair: type guard, property diff, then the
// child lists.
func diffNodes(old, new *tree.Node, script *EditScript) {
	if old.Kind != new.Kind {
		script.push(Op{
			Kind:     OpReplace,
			ID:       old.ID,
			ParentID: parentID(old),
			Index:    indexIn(old),
			Node:     new,
		})
		return
	}

	var styleChanges *style.Style
	if !old.Style.Equal(new.Style) {
		changed := new.Style
		styleChanges = &changed
	}
	bindingChanges := diffBindings(old.Bindings, new.Bindings)
	if styleChanges != nil || bindingChanges != nil || old.ID != new.ID {
		op := Op{
			Kind:           OpUpdate,
			ID:             old.ID,
			ParentID:       parentID(old),
			StyleChanges:   styleChanges,
			BindingChanges: bindingChanges,
			Node:           new,
		}
		if old.ID != new.ID {
			op.NewID = new.ID
		}
		script.push(op)
	}

	diffChildren(old, new, script)
}

// diffChildren matches children by key (explicit binding-derived key for
// list items, node id otherwise). When two new children could match the
// same old child, the first-encountered match in iteration order wins and
// later duplicates become inserts; callers must supply unique keys for
// correct semantics. The policy is deterministic, deliberately not optimal,
// and preserved as documented.
func diffChildren(old, new *tree.Node, script *EditScript) {
	oldChildren := old.Children()
	newChildren := new.Children()

	oldByKey := make(map[string]int, len(oldChildren))
	for i, child := range oldChildren {
		key := child.Key()
		if _, dup := oldByKey[key]; !dup {
			oldByKey[key] = i
		}
	}

	matchedOld := make([]bool, len(oldChildren))
	pair := make([]int, len(newChildren)) // new index -> old index, -1 = insert
	for j, child := range newChildren {
		pair[j] = -1
		if i, ok := oldByKey[child.Key()]; ok && !matchedOld[i] {
			matchedOld[i] = true
			pair[j] = i
		}
	}

	// Deletes first, ascending old index, one op per dropped subtree.
	for i, child := range oldChildren {
		if !matchedOld[i] {
			script.push(Op{Kind: OpDelete, ID: child.ID, ParentID: old.ID})
		}
	}

	// Children that keep their relative order form a longest increasing
	// subsequence of matched old indices; everything matched outside it
	// moves. This keeps the move count minimal for the common shuffle.
	stable := stableMatches(pair)

	for j, child := range newChildren {
		i := pair[j]
		if i < 0 {
			script.push(Op{Kind: OpInsert, ID: child.ID, ParentID: old.ID, Index: j, Node: child})
			continue
		}
		if !stable[j] {
			script.push(Op{Kind: OpMove, ID: oldChildren[i].ID, ParentID: old.ID, Index: j})
		}
		diffNodes(oldChildren[i], child, script)
	}
}

// stableMatches returns, per new index, whether the matched old index is
// part of a longest increasing subsequence of the matched sequence.
func stableMatches(pair []int) []bool {
	stable := make([]bool, len(pair))
	lis := longestIncreasing(pair)
	for _, j := range lis {
		stable[j] = true
	}
	return stable
}

// diffBindings compares binding maps key-wise. The result holds added and
// changed keys with their new values and removed keys mapped to nil; it is
// nil when nothing changed.
func diffBindings(old, new map[string]any) map[string]any {
	var changes map[string]any
	record := func(key string, value any) {
		if changes == nil {
			changes = make(map[string]any)
		}
		changes[key] = value
	}
	for key, newValue := range new {
		oldValue, exists := old[key]
		if !exists || !reflect.DeepEqual(oldValue, newValue) {
			record(key, newValue)
		}
	}
	for key := range old {
		if _, exists := new[key]; !exists {
			record(key, nil)
		}
	}
	return changes
}

func parentID(n *tree.Node) string {
	if p := n.Parent(); p != nil {
		return p.ID
	}
	return n.ID
}

func indexIn(n *tree.Node) int {
	if p := n.Parent(); p != nil {
		return p.IndexOf(n)
	}
	return 0
}
