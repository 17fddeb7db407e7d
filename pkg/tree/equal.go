package tree

import "reflect"

// Equal reports deep structural and value equality of two subtrees:
// identity, kind, style, bindings, events and children, in order.
// Transient fields (view handles, layout handles, applied-state memoization)
// are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Kind != b.Kind || !a.Style.Equal(b.Style) {
		return false
	}
	if !reflect.DeepEqual(a.Bindings, b.Bindings) {
		return false
	}
	if !reflect.DeepEqual(a.Events, b.Events) {
		return false
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}
