package diff

import (
	"fmt"
	"testing"

	"github.com/go-vitrine/vitrine/pkg/style"
	"github.com/go-vitrine/vitrine/pkg/tree"
)

func buildTree(id string, kind tree.Kind, children ...*tree.Node) *tree.Node {
	n := tree.New(id, kind)
	for _, child := range children {
		n.AppendChild(child)
	}
	return n
}

func textNode(id, content string) *tree.Node {
	n := tree.New(id, tree.KindText)
	n.Bindings = map[string]any{"text": content}
	return n
}

func keyed(id, key string) *tree.Node {
	n := tree.New(id, tree.KindView)
	n.Bindings = map[string]any{tree.KeyBinding: key}
	return n
}

func opsOfKind(script *EditScript, kind OpKind) []Op {
	var ops []Op
	for _, op := range script.Ops {
		if op.Kind == kind {
			ops = append(ops, op)
		}
	}
	return ops
}

func TestDiff_IdenticalTrees_NoDiff(t *testing.T) {
	build := func() *tree.Node {
		root := buildTree("root", tree.KindView,
			textNode("a", "hello"),
			buildTree("b", tree.KindView, textNode("b1", "world")),
		)
		root.Style.Width = style.Pt(100)
		return root
	}
	script := Diff(build(), build())
	if script.HasDiff() {
		t.Fatalf("expected no diff for identical trees, got %d ops: %+v", len(script.Ops), script.Ops)
	}
}

func TestDiff_SameTreeBothSides_NoDiff(t *testing.T) {
	root := buildTree("root", tree.KindView, textNode("a", "x"))
	if script := Diff(root, root); script.HasDiff() {
		t.Fatalf("diff(T, T) must be empty, got %+v", script.Ops)
	}
}

func TestDiff_NilOld_PureInsert(t *testing.T) {
	next := buildTree("root", tree.KindView, textNode("a", "x"))
	script := Diff(nil, next)
	if len(script.Ops) != 1 {
		t.Fatalf("expected exactly 1 op, got %d", len(script.Ops))
	}
	op := script.Ops[0]
	if op.Kind != OpInsert || op.Index != 0 || op.ParentID != "root" || op.Node != next {
		t.Errorf("unexpected insert op: %+v", op)
	}
	if script.Inserts != 1 {
		t.Errorf("insert count = %d, want 1", script.Inserts)
	}
}

func TestDiff_NilNew_PureDelete(t *testing.T) {
	old := buildTree("root", tree.KindView, textNode("a", "x"))
	script := Diff(old, nil)
	if len(script.Ops) != 1 {
		t.Fatalf("expected exactly 1 op, got %d", len(script.Ops))
	}
	op := script.Ops[0]
	if op.Kind != OpDelete || op.ID != "root" || op.ParentID != "root" {
		t.Errorf("unexpected delete op: %+v", op)
	}
}

func TestDiff_KindChange_SingleReplaceNoRecursion(t *testing.T) {
	old := buildTree("root", tree.KindView,
		buildTree("child", tree.KindView, textNode("grand", "deep")),
	)
	next := buildTree("root", tree.KindView,
		buildTree("child", tree.KindText, textNode("grand", "changed")),
	)
	script := Diff(old, next)
	replaces := opsOfKind(script, OpReplace)
	if len(replaces) != 1 {
		t.Fatalf("expected exactly 1 replace, got %d (%+v)", len(replaces), script.Ops)
	}
	if replaces[0].ID != "child" {
		t.Errorf("replace target = %q, want %q", replaces[0].ID, "child")
	}
	// No finer-grained diff across a type change: the grandchild update
	// must not appear.
	if len(script.Ops) != 1 {
		t.Errorf("expected no recursion below the replace, got ops %+v", script.Ops)
	}
}

func TestDiff_StyleOnlyChange(t *testing.T) {
	old := buildTree("root", tree.KindView)
	old.Style.Width = style.Pt(100)
	next := buildTree("root", tree.KindView)
	next.Style.Width = style.Pt(200)

	script := Diff(old, next)
	if len(script.Ops) != 1 {
		t.Fatalf("expected 1 op, got %+v", script.Ops)
	}
	op := script.Ops[0]
	if op.Kind != OpUpdate {
		t.Fatalf("expected update, got %v", op.Kind)
	}
	if op.StyleChanges == nil {
		t.Error("StyleChanges should be set")
	} else if op.StyleChanges.Width != style.Pt(200) {
		t.Errorf("StyleChanges.Width = %+v, want 200pt", op.StyleChanges.Width)
	}
	if op.BindingChanges != nil {
		t.Errorf("BindingChanges should be nil, got %v", op.BindingChanges)
	}
}

func TestDiff_BindingOnlyChange(t *testing.T) {
	old := textNode("t", "hello")
	old.Bindings["color"] = "red"
	next := textNode("t", "goodbye")
	next.Bindings["color"] = "red"

	script := Diff(old, next)
	if len(script.Ops) != 1 {
		t.Fatalf("expected 1 op, got %+v", script.Ops)
	}
	op := script.Ops[0]
	if op.Kind != OpUpdate || op.StyleChanges != nil {
		t.Fatalf("expected binding-only update, got %+v", op)
	}
	if len(op.BindingChanges) != 1 {
		t.Fatalf("BindingChanges = %v, want only the changed key", op.BindingChanges)
	}
	if op.BindingChanges["text"] != "goodbye" {
		t.Errorf("BindingChanges[text] = %v, want goodbye", op.BindingChanges["text"])
	}
}

func TestDiff_RemovedBindingKeyMapsToNil(t *testing.T) {
	old := textNode("t", "hello")
	old.Bindings["tint"] = "blue"
	next := textNode("t", "hello")

	script := Diff(old, next)
	if len(script.Ops) != 1 {
		t.Fatalf("expected 1 op, got %+v", script.Ops)
	}
	changes := script.Ops[0].BindingChanges
	if value, present := changes["tint"]; !present || value != nil {
		t.Errorf("removed key should map to nil, got %v (present=%v)", value, present)
	}
}

func TestDiff_KeyedReorder_EmitsMoves(t *testing.T) {
	old := buildTree("root", tree.KindView, keyed("c1", "a"), keyed("c2", "b"))
	next := buildTree("root", tree.KindView, keyed("c1b", "b"), keyed("c2a", "a"))
	// Give the new children the same bindings as the keyed identity they
	// take over, so only structure changes.
	next.ChildAt(0).Bindings = map[string]any{tree.KeyBinding: "b"}
	next.ChildAt(1).Bindings = map[string]any{tree.KeyBinding: "a"}

	script := Diff(old, next)
	if !script.HasDiff() {
		t.Fatal("reorder must produce a non-empty diff")
	}
	if script.Moves+script.Updates < 1 {
		t.Errorf("expected moves+updates >= 1, got moves=%d updates=%d", script.Moves, script.Updates)
	}
	if script.Inserts != 0 || script.Deletes != 0 {
		t.Errorf("pure reorder should not insert/delete, got %+v", script.Ops)
	}
}

func TestDiff_InsertAtIndex(t *testing.T) {
	old := buildTree("root", tree.KindView, textNode("a", "1"), textNode("c", "3"))
	next := buildTree("root", tree.KindView, textNode("a", "1"), textNode("b", "2"), textNode("c", "3"))

	script := Diff(old, next)
	inserts := opsOfKind(script, OpInsert)
	if len(inserts) != 1 {
		t.Fatalf("expected 1 insert, got %+v", script.Ops)
	}
	if inserts[0].Index != 1 || inserts[0].ParentID != "root" || inserts[0].ID != "b" {
		t.Errorf("unexpected insert: %+v", inserts[0])
	}
}

func TestDiff_DeleteSubtree_SingleOp(t *testing.T) {
	old := buildTree("root", tree.KindView,
		buildTree("branch", tree.KindView, textNode("leaf1", "x"), textNode("leaf2", "y")),
		textNode("keep", "z"),
	)
	next := buildTree("root", tree.KindView, textNode("keep", "z"))

	script := Diff(old, next)
	deletes := opsOfKind(script, OpDelete)
	if len(deletes) != 1 {
		t.Fatalf("a dropped subtree must be one delete at its root, got %+v", script.Ops)
	}
	if deletes[0].ID != "branch" {
		t.Errorf("delete target = %q, want branch", deletes[0].ID)
	}
}

func TestDiff_DuplicateKeys_FirstMatchWins(t *testing.T) {
	old := buildTree("root", tree.KindView, keyed("c1", "dup"))
	next := buildTree("root", tree.KindView, keyed("n1", "dup"), keyed("n2", "dup"))

	script := Diff(old, next)
	// First new child matches the single old child; the later duplicate is
	// treated as an insert.
	if script.Inserts != 1 {
		t.Errorf("expected 1 insert for the duplicate key, got %d (%+v)", script.Inserts, script.Ops)
	}
	inserts := opsOfKind(script, OpInsert)
	if len(inserts) == 1 && inserts[0].ID != "n2" {
		t.Errorf("the later duplicate should insert, got %+v", inserts[0])
	}
}

func TestDiff_OpsEmittedInAscendingIndex(t *testing.T) {
	old := buildTree("root", tree.KindView,
		textNode("a", "1"), textNode("b", "2"), textNode("c", "3"), textNode("d", "4"),
	)
	next := buildTree("root", tree.KindView,
		textNode("x", "0"), textNode("b", "2"), textNode("y", "5"), textNode("d", "4"),
	)
	script := Diff(old, next)
	lastInsert := -1
	for _, op := range script.Ops {
		if op.Kind == OpInsert {
			if op.Index < lastInsert {
				t.Fatalf("insert indices not ascending: %+v", script.Ops)
			}
			lastInsert = op.Index
		}
	}
}

func TestLongestIncreasing(t *testing.T) {
	cases := []struct {
		seq  []int
		want int // expected LIS length
	}{
		{nil, 0},
		{[]int{0, 1, 2}, 3},
		{[]int{2, 1, 0}, 1},
		{[]int{1, -1, 0, 2}, 2},
		{[]int{3, 0, 1, 4, 2}, 3},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.seq), func(t *testing.T) {
			got := longestIncreasing(tc.seq)
			if len(got) != tc.want {
				t.Fatalf("LIS(%v) length = %d, want %d (got %v)", tc.seq, len(got), tc.want, got)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1] >= got[i] || tc.seq[got[i-1]] >= tc.seq[got[i]] {
					t.Fatalf("result not strictly increasing: %v over %v", got, tc.seq)
				}
			}
		})
	}
}
