// Package motion implements the transform hand-off between the scene graph
// and the physics engine.
package motion

import "sync"

// Phase describes which side of a Sync holds the newer value.
type Phase int

const (
	Clean Phase = iota
	SceneAhead
	PhysicsAhead
)

func (p Phase) String() string {
	switch p {
	case Clean:
		return "clean"
	case SceneAhead:
		return "scene-ahead"
	case PhysicsAhead:
		return "physics-ahead"
	default:
		return "unknown"
	}
}

// Sync is a double-slot buffer shared by one scene producer and one physics
// producer. At most one of the two dirty flags is set at any time; the side
// that set it wins the next reconciliation, and the scene side wins a race.
//
// Consume callbacks run inside the critical section and must not call back
// into the same Sync.
type Sync[T any] struct {
	mu           sync.Mutex
	scene        T
	world        T
	sceneDirty   bool
	physicsDirty bool
}

// NewSync returns a clean Sync with both slots set to initial.
func NewSync[T any](initial T) *Sync[T] {
	return &Sync[T]{scene: initial, world: initial}
}

// PushScene records a scene-side value. Any unconsumed physics value is
// discarded.
func (s *Sync[T]) PushScene(v T) {
	s.mu.Lock()
	s.scene = v
	s.world = v
	s.sceneDirty = true
	s.physicsDirty = false
	s.mu.Unlock()
}

// PushPhysics records a physics-side value. It is dropped, and false is
// returned, while a scene value is waiting to be consumed.
func (s *Sync[T]) PushPhysics(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sceneDirty {
		return false
	}
	s.world = v
	s.physicsDirty = true
	return true
}

// ConsumeScene hands the pending scene value to apply and clears the scene
// flag. It reports false when there was nothing pending.
func (s *Sync[T]) ConsumeScene(apply func(T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sceneDirty {
		return false
	}
	if apply != nil {
		apply(s.scene)
	}
	s.sceneDirty = false
	return true
}

// ConsumePhysics hands the pending physics value to apply and clears the
// physics flag.
func (s *Sync[T]) ConsumePhysics(apply func(T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.physicsDirty {
		return false
	}
	if apply != nil {
		apply(s.world)
	}
	s.physicsDirty = false
	return true
}

// World returns the last committed world value.
func (s *Sync[T]) World() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// Dirty returns both flags from a single critical section.
func (s *Sync[T]) Dirty() (scene, physics bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneDirty, s.physicsDirty
}

func (s *Sync[T]) Phase() Phase {
	scene, physics := s.Dirty()
	switch {
	case scene:
		return SceneAhead
	case physics:
		return PhysicsAhead
	default:
		return Clean
	}
}

// Reset overwrites both slots and clears both flags.
func (s *Sync[T]) Reset(v T) {
	s.mu.Lock()
	s.scene = v
	s.world = v
	s.sceneDirty = false
	s.physicsDirty = false
	s.mu.Unlock()
}
