package engine

// Registry stores engine objects under generation-checked handles. It is not
// synchronised; engines guard it with their own lock.
type Registry[T any] struct {
	gen    []generation
	values []T
	live   []bool
	free   []slotID
	count  int
}

// Create stores v and returns its handle.
func (r *Registry[T]) Create(v T) Handle {
	var id slotID
	if n := len(r.free); n > 0 {
		id = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.gen = append(r.gen, 1)
		r.values = append(r.values, v)
		r.live = append(r.live, false)
		id = slotID(len(r.gen))
	}
	idx := id - 1
	r.values[idx] = v
	r.live[idx] = true
	r.count++
	return makeHandle(id, r.gen[idx])
}

// Get returns the value stored under h.
func (r *Registry[T]) Get(h Handle) (T, bool) {
	var zero T
	idx, ok := r.index(h)
	if !ok {
		return zero, false
	}
	return r.values[idx], true
}

// Remove deletes h. Handles that were already removed report false.
func (r *Registry[T]) Remove(h Handle) bool {
	idx, ok := r.index(h)
	if !ok {
		return false
	}
	var zero T
	r.values[idx] = zero
	r.live[idx] = false
	r.gen[idx]++
	r.free = append(r.free, slotID(idx+1))
	r.count--
	return true
}

// Each calls fn for every live value in slot order.
func (r *Registry[T]) Each(fn func(Handle, T)) {
	for i := range r.values {
		if !r.live[i] {
			continue
		}
		fn(makeHandle(slotID(i+1), r.gen[i]), r.values[i])
	}
}

func (r *Registry[T]) Len() int {
	return r.count
}

func (r *Registry[T]) index(h Handle) (int, bool) {
	if !h.Valid() || int(h.id()) > len(r.gen) {
		return 0, false
	}
	idx := int(h.id()) - 1
	if !r.live[idx] || r.gen[idx] != h.generation() {
		return 0, false
	}
	return idx, true
}
