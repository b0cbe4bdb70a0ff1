package engine

import "testing"

func TestRegistryLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_destroy_middle", 3, 1},
		{"none_destroyed", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var r Registry[string]
			handles := make([]Handle, 0, c.create)
			for i := 0; i < c.create; i++ {
				handles = append(handles, r.Create("v"))
			}
			if r.Len() != c.create {
				t.Fatalf("expected %d values, got %d", c.create, r.Len())
			}
			if c.destroyIndex >= 0 {
				h := handles[c.destroyIndex]
				if !r.Remove(h) {
					t.Fatalf("Remove should succeed for a live handle")
				}
				if _, ok := r.Get(h); ok {
					t.Fatalf("removed handle still resolves")
				}
				if r.Remove(h) {
					t.Fatalf("second Remove should report false")
				}
			}
		})
	}
}

func TestRegistryReusedSlotGetsNewGeneration(t *testing.T) {
	var r Registry[int]
	old := r.Create(1)
	r.Remove(old)
	fresh := r.Create(2)

	if old.id() != fresh.id() {
		t.Fatalf("expected slot reuse")
	}
	if old == fresh {
		t.Fatalf("reused slot must not produce the same handle")
	}
	if _, ok := r.Get(old); ok {
		t.Fatalf("stale handle resolved")
	}
	if v, ok := r.Get(fresh); !ok || v != 2 {
		t.Fatalf("fresh handle = %v, %v", v, ok)
	}
}

func TestRegistryEachSkipsRemoved(t *testing.T) {
	var r Registry[int]
	a := r.Create(1)
	r.Create(2)
	r.Create(3)
	r.Remove(a)

	sum := 0
	r.Each(func(_ Handle, v int) { sum += v })
	if sum != 5 {
		t.Fatalf("expected sum 5, got %d", sum)
	}
}

func TestZeroHandleInvalid(t *testing.T) {
	var r Registry[int]
	if Handle(0).Valid() {
		t.Fatalf("zero handle should be invalid")
	}
	if _, ok := r.Get(0); ok {
		t.Fatalf("zero handle resolved")
	}
}
