package handler

import "context"

// IndexStateGateway persists the bookmark of the last committed block.
type IndexStateGateway interface {
	// LoadIndexState returns the stored bookmark, or nil when nothing was committed yet.
	LoadIndexState(ctx context.Context) (*IndexState, error)

	// SaveIndexState stores the bookmark. Implementations that back a StateStore should
	// join the unit of work carried by ctx so the bookmark commits together with the state.
	SaveIndexState(ctx context.Context, state IndexState) error
}

// StateStore opens units of work over the integrator's state.
type StateStore[S any] interface {
	// WithState runs fn inside one unit of work. Changes are committed only if fn returns nil.
	WithState(ctx context.Context, fn func(ctx context.Context, state S) error) error

	// View hands fn the committed state outside any unit of work. Effects run through View.
	View(ctx context.Context, fn func(ctx context.Context, state S) error) error
}

// Rollbacker reverts committed state and bookmark to the given block number.
type Rollbacker interface {
	RollbackTo(ctx context.Context, blockNumber uint64) error
}

// ActionHandler is the block-level entry point of the engine.
type ActionHandler interface {
	// HandleBlock validates continuity, applies the block's actions and, outside replay, runs effects.
	// needToSeek reports that the caller must resume from seekBlockNumber instead.
	HandleBlock(ctx context.Context, block *Block, isReplay, isFirstBlock bool) (needToSeek bool,
		seekBlockNumber uint64, err error)

	// ActiveVersion returns the name of the version that will process the next action.
	ActiveVersion() string

	// IndexState returns a copy of the in-memory bookmark, nil before anything was loaded or committed.
	IndexState() *IndexState

	// ResetIndexState drops the in-memory bookmark so that the next first block reloads it.
	ResetIndexState()
}
