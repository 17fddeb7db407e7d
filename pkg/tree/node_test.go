package tree

import (
	"testing"

	"github.com/go-vitrine/vitrine/pkg/geometry"
	"github.com/go-vitrine/vitrine/pkg/style"
)

func TestNode_AttachDetach(t *testing.T) {
	parent := New("p", KindView)
	a := New("a", KindView)
	b := New("b", KindView)
	parent.AppendChild(a)
	parent.AppendChild(b)

	if a.Parent() != parent || b.Parent() != parent {
		t.Fatal("parent link not set on attach")
	}
	if parent.IndexOf(b) != 1 {
		t.Fatalf("IndexOf(b) = %d, want 1", parent.IndexOf(b))
	}

	if !parent.RemoveChild(a) {
		t.Fatal("RemoveChild returned false for an attached child")
	}
	if a.Parent() != nil {
		t.Error("parent link not cleared on detach")
	}
	if parent.RemoveChild(a) {
		t.Error("RemoveChild succeeded twice")
	}
	if parent.ChildCount() != 1 || parent.ChildAt(0) != b {
		t.Errorf("child list inconsistent after removal")
	}
}

func TestNode_InsertChildReparents(t *testing.T) {
	first := New("first", KindView)
	second := New("second", KindView)
	child := New("child", KindView)
	first.AppendChild(child)

	second.InsertChild(child, 0)
	if child.Parent() != second {
		t.Fatal("child not reparented")
	}
	if first.ChildCount() != 0 {
		t.Error("child still attached to old parent")
	}
}

func TestNode_InsertChildClampsIndex(t *testing.T) {
	parent := New("p", KindView)
	parent.AppendChild(New("a", KindView))
	late := New("late", KindView)
	parent.InsertChild(late, 99)
	if parent.ChildAt(1) != late {
		t.Errorf("out-of-range insert should clamp to the end")
	}
	early := New("early", KindView)
	parent.InsertChild(early, -5)
	if parent.ChildAt(0) != early {
		t.Errorf("negative insert should clamp to the front")
	}
}

func TestNode_Key(t *testing.T) {
	n := New("node-1", KindView)
	if n.Key() != "node-1" {
		t.Errorf("key without binding = %q, want the id", n.Key())
	}
	if n.HasExplicitKey() {
		t.Error("HasExplicitKey true without a binding")
	}
	n.Bindings = map[string]any{KeyBinding: 42}
	if n.Key() != "42" {
		t.Errorf("key = %q, want stringified 42", n.Key())
	}
	if !n.HasExplicitKey() {
		t.Error("HasExplicitKey false with a binding")
	}
}

func TestNode_Flattenable(t *testing.T) {
	registry := NewRegistry()
	parent := New("p", KindView)

	plain := New("plain", KindView)
	parent.AppendChild(plain)
	if !plain.Flattenable(registry) {
		t.Error("undecorated container with a parent should flatten")
	}

	root := New("root", KindView)
	if root.Flattenable(registry) {
		t.Error("a parentless node must never flatten")
	}

	decorated := New("painted", KindView)
	decorated.Style.Decoration.BackgroundColor = 0xFF00FF00
	parent.AppendChild(decorated)
	if decorated.Flattenable(registry) {
		t.Error("decorated container should not flatten")
	}

	interactive := New("tappable", KindView)
	interactive.Events = map[string]any{"tap": "onTap"}
	parent.AppendChild(interactive)
	if interactive.Flattenable(registry) {
		t.Error("container with events should not flatten")
	}

	label := New("label", KindText)
	parent.AppendChild(label)
	if label.Flattenable(registry) {
		t.Error("non-container kinds never flatten")
	}
}

func TestNode_CloneTree(t *testing.T) {
	root := New("root", KindView)
	root.Style.Width = style.Pt(100)
	root.Bindings = map[string]any{"title": "original"}
	root.ViewHandle = "a live widget"
	root.MarkApplied(root.Style, geometry.Frame{Width: 100})
	child := New("child", KindText)
	child.Bindings = map[string]any{"text": "hi"}
	root.AppendChild(child)

	clone := root.CloneTree()
	if !Equal(clone, root) {
		t.Fatal("clone not value-equal to original")
	}
	if clone.ViewHandle != nil {
		t.Error("view handle must not carry over to a clone")
	}
	if !clone.NeedsStyleApply() {
		t.Error("applied-state memoization must not carry over")
	}
	if clone.ChildAt(0).Parent() != clone {
		t.Error("cloned children must link to the cloned parent")
	}

	// Mutating the clone's maps must not touch the original.
	clone.Bindings["title"] = "copy"
	clone.ChildAt(0).Bindings["text"] = "bye"
	if root.Bindings["title"] != "original" || child.Bindings["text"] != "hi" {
		t.Error("clone shares binding maps with the original")
	}
}

func TestNode_WalkPreOrderAndPruning(t *testing.T) {
	root := New("root", KindView)
	a := New("a", KindView)
	a.AppendChild(New("a1", KindView))
	root.AppendChild(a)
	root.AppendChild(New("b", KindView))

	var visited []string
	root.Walk(func(n *Node) bool {
		visited = append(visited, n.ID)
		return n.ID != "a" // prune a's subtree
	})
	want := []string{"root", "a", "b"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}

func TestNode_TakeLayoutHandleIsSingleUse(t *testing.T) {
	n := New("n", KindView)
	n.SetLayoutHandle("handle")
	if got := n.TakeLayoutHandle(); got != "handle" {
		t.Fatalf("first take = %v", got)
	}
	if got := n.TakeLayoutHandle(); got != nil {
		t.Fatalf("second take = %v, want nil", got)
	}
}

func TestNode_AppliedStateMemoization(t *testing.T) {
	n := New("n", KindView)
	frame := geometry.Frame{X: 1, Y: 2, Width: 3, Height: 4}
	if !n.NeedsStyleApply() || !n.NeedsFrameApply(frame) {
		t.Fatal("fresh node must need both applications")
	}
	n.MarkApplied(n.Style, frame)
	if n.NeedsStyleApply() {
		t.Error("style needs apply right after MarkApplied")
	}
	if n.NeedsFrameApply(frame) {
		t.Error("identical frame needs apply right after MarkApplied")
	}
	if !n.NeedsFrameApply(geometry.Frame{X: 9}) {
		t.Error("different frame should need apply")
	}
	n.Style.FlexGrow = 1
	if !n.NeedsStyleApply() {
		t.Error("changed style should need apply")
	}
	n.SetForceApply()
	if !n.NeedsFrameApply(frame) {
		t.Error("force apply must defeat memoization")
	}
}

func TestIndex(t *testing.T) {
	root := New("root", KindView)
	child := New("child", KindText)
	root.AppendChild(child)
	index := Index(root)
	if len(index) != 2 || index["root"] != root || index["child"] != child {
		t.Fatalf("index = %v", index)
	}
}

func TestRegistry_BuiltinsAndRegistration(t *testing.T) {
	r := NewRegistry()
	for _, tc := range []struct {
		name string
		kind Kind
	}{{"view", KindView}, {"text", KindText}, {"image", KindImage}} {
		kind, ok := r.Lookup(tc.name)
		if !ok || kind != tc.kind {
			t.Errorf("Lookup(%q) = %v/%v, want %v", tc.name, kind, ok, tc.kind)
		}
	}
	if !r.Spec(KindView).Container {
		t.Error("view spec should be a container")
	}
	if !r.Spec(KindText).Measurable {
		t.Error("text spec should be measurable")
	}

	custom, err := r.Register(KindSpec{Name: "chart"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if kind, ok := r.Lookup("chart"); !ok || kind != custom {
		t.Errorf("Lookup(chart) = %v/%v, want %v", kind, ok, custom)
	}
	if _, err := r.Register(KindSpec{Name: "chart"}); err == nil {
		t.Error("duplicate registration should fail")
	}
	if _, err := r.Register(KindSpec{Name: ""}); err == nil {
		t.Error("empty name should fail")
	}
}

func TestRegistry_UnknownSpec(t *testing.T) {
	r := NewRegistry()
	spec := r.Spec(Kind(250))
	if spec.Container || spec.Measurable {
		t.Errorf("out-of-range kind should map to the unknown spec, got %+v", spec)
	}
	if r.Spec(KindUnknown).Name != "unknown" {
		t.Errorf("zero kind spec = %+v", r.Spec(KindUnknown))
	}
}
