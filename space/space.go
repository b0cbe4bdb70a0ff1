// Package space is the active simulation world: it owns which bodies take
// part in the simulation and the order of the physics pass.
package space

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/physync/engine"
)

const (
	DefaultFixedStep   = 1.0 / 60
	DefaultMaxSubSteps = 4
)

// Member is a body that can take part in a Space.
type Member interface {
	Handle() engine.Handle
	// SyncToEngine applies queued scene transforms before a step.
	SyncToEngine()
	// SyncFromEngine publishes simulated transforms after a step.
	SyncFromEngine()
}

// Space drives one engine. Membership changes must happen between passes.
type Space struct {
	engine engine.Engine
	logger *log.Logger

	mu          sync.Mutex
	members     map[engine.Handle]Member
	order       []engine.Handle
	fixedStep   float64
	maxSubSteps int
	accumulator float64
	steps       uint64
}

type Option func(*Space)

func WithLogger(l *log.Logger) Option {
	return func(s *Space) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTiming sets the fixed simulation step and the maximum number of
// sub-steps run per pass.
func WithTiming(fixedStep float64, maxSubSteps int) Option {
	return func(s *Space) {
		s.setTiming(fixedStep, maxSubSteps)
	}
}

func New(eng engine.Engine, opts ...Option) *Space {
	if eng == nil {
		panic("space: nil engine")
	}
	s := &Space{
		engine:      eng,
		logger:      log.Default(),
		members:     make(map[engine.Handle]Member),
		fixedStep:   DefaultFixedStep,
		maxSubSteps: DefaultMaxSubSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Space) Engine() engine.Engine { return s.engine }

// SetTiming changes the fixed step and sub-step limit.
func (s *Space) SetTiming(fixedStep float64, maxSubSteps int) {
	s.mu.Lock()
	s.setTiming(fixedStep, maxSubSteps)
	s.mu.Unlock()
}

func (s *Space) setTiming(fixedStep float64, maxSubSteps int) {
	if fixedStep > 0 {
		s.fixedStep = fixedStep
	}
	if maxSubSteps > 0 {
		s.maxSubSteps = maxSubSteps
	}
}

func (s *Space) SetGravity(g mgl64.Vec3) {
	s.engine.SetGravity(g)
}

// Add registers m with the engine. It reports false when m is already a
// member.
func (s *Space) Add(m Member) bool {
	if m == nil {
		return false
	}
	h := m.Handle()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[h]; ok {
		return false
	}
	s.members[h] = m
	s.order = append(s.order, h)
	s.engine.AddToWorld(h)
	return true
}

// Remove deregisters m from the engine. It reports false when m was not a
// member.
func (s *Space) Remove(m Member) bool {
	if m == nil {
		return false
	}
	h := m.Handle()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[h]; !ok {
		return false
	}
	delete(s.members, h)
	for i, oh := range s.order {
		if oh == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.engine.RemoveFromWorld(h)
	return true
}

func (s *Space) Contains(m Member) bool {
	if m == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[m.Handle()]
	return ok
}

func (s *Space) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Member returns the member registered under h.
func (s *Space) Member(h engine.Handle) (Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[h]
	return m, ok
}

// Overlaps returns the members touching m.
func (s *Space) Overlaps(m Member) []Member {
	if m == nil {
		return nil
	}
	handles := s.engine.QueryOverlaps(m.Handle())
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Member, 0, len(handles))
	for _, h := range handles {
		if other, ok := s.members[h]; ok {
			out = append(out, other)
		}
	}
	return out
}

// Steps is the number of fixed engine steps run so far.
func (s *Space) Steps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// Step runs one physics pass: queued scene transforms are applied to every
// member, the engine advances in fixed sub-steps covering dt, then every
// member publishes its simulated transform. It returns the number of
// sub-steps taken.
func (s *Space) Step(dt float64) int {
	s.mu.Lock()
	members := s.snapshot()
	n := s.consume(dt)
	fixed := s.fixedStep
	s.steps += uint64(n)
	s.mu.Unlock()

	for _, m := range members {
		m.SyncToEngine()
	}
	for range n {
		s.engine.Step(fixed)
	}
	if n == 0 {
		return 0
	}
	for _, m := range members {
		m.SyncFromEngine()
	}
	return n
}

func (s *Space) snapshot() []Member {
	out := make([]Member, 0, len(s.order))
	for _, h := range s.order {
		out = append(out, s.members[h])
	}
	return out
}

// consume adds dt to the accumulator and returns how many fixed steps are
// due. Time beyond maxSubSteps is dropped.
func (s *Space) consume(dt float64) int {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0
	}
	s.accumulator += dt
	n := int(s.accumulator / s.fixedStep)
	if n > s.maxSubSteps {
		s.logger.Printf("Space: dropping %.4fs of simulation time", s.accumulator-float64(s.maxSubSteps)*s.fixedStep)
		n = s.maxSubSteps
		s.accumulator = 0
		return n
	}
	s.accumulator -= float64(n) * s.fixedStep
	return n
}

// Run steps the space every interval until ctx is done, using the measured
// wall time between ticks. A non-positive interval means the fixed step. It returns ctx.Err().
func (s *Space) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		s.mu.Lock()
		fixed := s.fixedStep
		s.mu.Unlock()
		interval = time.Duration(fixed * float64(time.Second))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}
