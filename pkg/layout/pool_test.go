package layout

import (
	"sync"
	"testing"
)

func TestPool_AcquireReleaseBalance(t *testing.T) {
	pool := NewNodePool(4)
	if pool.Size() != 4 || pool.InUse() != 0 {
		t.Fatalf("fresh pool: size=%d inUse=%d", pool.Size(), pool.InUse())
	}

	h := pool.Acquire()
	if !h.IsValid() {
		t.Fatal("acquired handle reports invalid")
	}
	if pool.InUse() != 1 {
		t.Fatalf("inUse = %d after acquire, want 1", pool.InUse())
	}
	if _, err := pool.Get(h); err != nil {
		t.Fatalf("Get on live handle: %v", err)
	}
	if err := pool.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if pool.InUse() != 0 {
		t.Fatalf("inUse = %d after release, want 0", pool.InUse())
	}
}

func TestPool_GrowsWhenExhausted(t *testing.T) {
	pool := NewNodePool(2)
	handles := make([]Handle, 0, 5)
	for i := 0; i < 5; i++ {
		handles = append(handles, pool.Acquire())
	}
	if pool.Size() < 5 {
		t.Fatalf("pool did not grow: size=%d", pool.Size())
	}
	if pool.InUse() != 5 {
		t.Fatalf("inUse = %d, want 5", pool.InUse())
	}
	for _, h := range handles {
		if err := pool.Release(h); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	if pool.InUse() != 0 {
		t.Fatalf("inUse = %d after draining, want 0", pool.InUse())
	}
}

func TestPool_StaleHandleDetected(t *testing.T) {
	pool := NewNodePool(1)
	h := pool.Acquire()
	if err := pool.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := pool.Get(h); err == nil {
		t.Error("Get on released handle must fail")
	}
	if err := pool.Release(h); err == nil {
		t.Error("double release must fail")
	}

	// Re-acquiring the same slot must not revive the old handle.
	h2 := pool.Acquire()
	if h2.index == h.index && h2.gen == h.gen {
		t.Fatal("recycled slot reissued the same generation")
	}
	if _, err := pool.Get(h); err == nil {
		t.Error("old handle valid after slot reuse")
	}
}

func TestPool_ZeroHandleInvalid(t *testing.T) {
	pool := NewNodePool(1)
	var zero Handle
	if zero.IsValid() {
		t.Error("zero handle reports valid")
	}
	if _, err := pool.Get(zero); err == nil {
		t.Error("Get on zero handle must fail")
	}
}

func TestPool_ConcurrentCheckouts(t *testing.T) {
	pool := NewNodePool(8)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h := pool.Acquire()
				if _, err := pool.Get(h); err != nil {
					t.Errorf("Get: %v", err)
					return
				}
				if err := pool.Release(h); err != nil {
					t.Errorf("Release: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if pool.InUse() != 0 {
		t.Fatalf("inUse = %d after concurrent churn, want 0", pool.InUse())
	}
}
