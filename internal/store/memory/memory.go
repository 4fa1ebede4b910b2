// Package memory provides in-process implementations of the index state gateway and the state store.
// They keep nothing across restarts and are meant for tests and dry runs.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

var _ handler.IndexStateGateway = (*Gateway)(nil)

// Gateway keeps the bookmark in memory.
type Gateway struct {
	mu      sync.Mutex
	state   *handler.IndexState
	saveErr error
	loadErr error

	loads atomic.Int64
	saves atomic.Int64
}

// NewGateway creates a gateway, optionally pre-seeded with a bookmark.
func NewGateway(initial *handler.IndexState) *Gateway {
	g := &Gateway{}
	if initial != nil {
		state := *initial
		g.state = &state
	}

	return g
}

// LoadIndexState implements handler.IndexStateGateway.
func (g *Gateway) LoadIndexState(context.Context) (*handler.IndexState, error) {
	g.loads.Add(1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.loadErr != nil {
		return nil, g.loadErr
	}
	if g.state == nil {
		return nil, nil
	}

	state := *g.state

	return &state, nil
}

// SaveIndexState implements handler.IndexStateGateway.
func (g *Gateway) SaveIndexState(_ context.Context, state handler.IndexState) error {
	g.saves.Add(1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.saveErr != nil {
		return g.saveErr
	}

	g.state = &state

	return nil
}

// FailSaves makes every following save return err. A nil err restores normal behaviour.
func (g *Gateway) FailSaves(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.saveErr = err
}

// FailLoads makes every following load return err. A nil err restores normal behaviour.
func (g *Gateway) FailLoads(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.loadErr = err
}

// Set overwrites the stored bookmark.
func (g *Gateway) Set(state *handler.IndexState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state == nil {
		g.state = nil
		return
	}

	s := *state
	g.state = &s
}

// Loads returns how many times LoadIndexState was called.
func (g *Gateway) Loads() int64 {
	return g.loads.Load()
}

// Saves returns how many times SaveIndexState was called.
func (g *Gateway) Saves() int64 {
	return g.saves.Load()
}

// Store keeps the integrator state in memory. When a clone function is given, every unit of work
// runs against a copy that replaces the current state only if the work succeeds.
type Store[S any] struct {
	mu    sync.Mutex
	state S
	clone func(S) S
}

// NewStore wraps state. clone may be nil, in which case units of work mutate state in place
// and a failed unit of work is not rolled back.
func NewStore[S any](state S, clone func(S) S) *Store[S] {
	return &Store[S]{state: state, clone: clone}
}

// WithState implements handler.StateStore.
func (s *Store[S]) WithState(ctx context.Context, fn func(ctx context.Context, state S) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clone == nil {
		return fn(ctx, s.state)
	}

	working := s.clone(s.state)
	if err := fn(ctx, working); err != nil {
		return err
	}
	s.state = working

	return nil
}

// View implements handler.StateStore.
func (s *Store[S]) View(ctx context.Context, fn func(ctx context.Context, state S) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(ctx, s.state)
}

// State returns the current state value.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}
