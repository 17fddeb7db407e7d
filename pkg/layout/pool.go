package layout

import (
	"fmt"
	"sync"

	"github.com/kjk/flex"
)

// DefaultWarmNodes is the number of flex nodes a new pool pre-allocates.
const DefaultWarmNodes = 64

// Handle addresses one pooled flex node. Handles are generation-checked:
// after a slot is released, every handle issued for its previous checkout
// becomes stale and Get reports an error instead of returning a node that
// may already belong to another tree.
type Handle struct {
	index uint32
	gen   uint32
}

// IsValid reports whether the handle was ever issued by a pool.
func (h Handle) IsValid() bool {
	return h.gen != 0
}

type poolSlot struct {
	node  *flex.Node
	gen   uint32
	inUse bool
}

// NodePool is a reusable store of flexbox-engine node handles. Acquire and
// Release are internally synchronized so independent layout passes may run
// concurrently; exhaustion grows the pool rather than blocking.
type NodePool struct {
	mu     sync.Mutex
	config *flex.Config
	slots  []poolSlot
	free   []uint32
	inUse  int
}

// NewNodePool creates a pool pre-warmed with the given number of nodes.
// A non-positive warm count uses DefaultWarmNodes.
func NewNodePool(warm int) *NodePool {
	if warm <= 0 {
		warm = DefaultWarmNodes
	}
	p := &NodePool{config: flex.NewConfig()}
	p.slots = make([]poolSlot, 0, warm)
	p.free = make([]uint32, 0, warm)
	for i := 0; i < warm; i++ {
		p.slots = append(p.slots, poolSlot{node: flex.NewNodeWithConfig(p.config), gen: 1})
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Acquire checks out a flex node and returns its handle. The node's style is
// fully rewritten by the adapter on every pass, so acquisition only
// guarantees the node carries no measure function, context or children.
func (p *NodePool) Acquire() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	var index uint32
	if n := len(p.free); n > 0 {
		index = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		index = uint32(len(p.slots))
		p.slots = append(p.slots, poolSlot{node: flex.NewNodeWithConfig(p.config), gen: 1})
	}
	slot := &p.slots[index]
	slot.inUse = true
	p.inUse++
	return Handle{index: index, gen: slot.gen}
}

// Get resolves a handle to its flex node. A stale or foreign handle is a
// detectable error, never a node owned by someone else.
func (p *NodePool) Get(h Handle) (*flex.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, err := p.slotFor(h)
	if err != nil {
		return nil, err
	}
	return slot.node, nil
}

// Release returns a node to the pool, bumping the slot generation so every
// outstanding handle for this checkout becomes stale. The caller must have
// detached the node from any flex tree first.
func (p *NodePool) Release(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, err := p.slotFor(h)
	if err != nil {
		return err
	}
	slot.node.Context = nil
	slot.node.SetMeasureFunc(nil)
	slot.gen++
	if slot.gen == 0 { // skip the reserved never-issued generation
		slot.gen = 1
	}
	slot.inUse = false
	p.inUse--
	p.free = append(p.free, h.index)
	return nil
}

func (p *NodePool) slotFor(h Handle) (*poolSlot, error) {
	if !h.IsValid() || int(h.index) >= len(p.slots) {
		return nil, fmt.Errorf("layout: invalid node handle %d/%d", h.index, h.gen)
	}
	slot := &p.slots[h.index]
	if !slot.inUse || slot.gen != h.gen {
		return nil, fmt.Errorf("layout: stale node handle %d/%d (slot at %d)", h.index, h.gen, slot.gen)
	}
	return slot, nil
}

// InUse returns the number of nodes currently checked out.
func (p *NodePool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Size returns the total number of slots, checked out or free.
func (p *NodePool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
