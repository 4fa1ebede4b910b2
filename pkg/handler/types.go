package handler

import (
	"context"
	"encoding/json"
	"fmt"
)

// Action is a single named operation inside a block.
// Name is namespaced by the emitting contract, e.g. "eosio.token::transfer".
type Action struct {
	Name    string          `json:"name" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the action payload into v.
func (a Action) Decode(v any) error {
	if len(a.Payload) == 0 {
		return fmt.Errorf("action %s has no payload", a.Name)
	}

	return json.Unmarshal(a.Payload, v)
}

// Block is an ordered batch of actions identified by (BlockNumber, BlockHash).
type Block struct {
	BlockNumber       uint64   `json:"block_number"`
	BlockHash         string   `json:"block_hash" validate:"required"`
	PreviousBlockHash string   `json:"previous_block_hash"`
	Actions           []Action `json:"actions" validate:"dive"`
}

// BlockMeta is the read-only block context handed to updaters and effects.
type BlockMeta struct {
	BlockNumber       uint64
	BlockHash         string
	PreviousBlockHash string
	IsReplay          bool
}

// Meta returns the ambient context for b.
func (b *Block) Meta(isReplay bool) BlockMeta {
	return BlockMeta{
		BlockNumber:       b.BlockNumber,
		BlockHash:         b.BlockHash,
		PreviousBlockHash: b.PreviousBlockHash,
		IsReplay:          isReplay,
	}
}

// IndexState is the bookmark of the last committed block.
// HandlerVersion is the version active after that block was applied.
type IndexState struct {
	BlockNumber    uint64 `json:"block_number"`
	BlockHash      string `json:"block_hash"`
	HandlerVersion string `json:"handler_version"`
}

// VersionedAction records the handler version that processed an action.
type VersionedAction struct {
	Action      Action
	VersionName string
}

// Updater applies a deterministic state mutation for one action type.
// A non-empty return value different from the current version name requests an
// immediate switch to that version for the remaining actions.
type Updater[S any] interface {
	Apply(state S, payload json.RawMessage, meta BlockMeta) (nextVersion string, err error)
}

// UpdaterFunc adapts a function to the Updater interface.
type UpdaterFunc[S any] func(state S, payload json.RawMessage, meta BlockMeta) (string, error)

// Apply calls f.
func (f UpdaterFunc[S]) Apply(state S, payload json.RawMessage, meta BlockMeta) (string, error) {
	return f(state, payload, meta)
}

// Effect performs a side effect for one action type after the block's state is committed.
type Effect[S any] interface {
	Run(ctx context.Context, state S, payload json.RawMessage, meta BlockMeta) error
}

// EffectFunc adapts a function to the Effect interface.
type EffectFunc[S any] func(ctx context.Context, state S, payload json.RawMessage, meta BlockMeta) error

// Run calls f.
func (f EffectFunc[S]) Run(ctx context.Context, state S, payload json.RawMessage, meta BlockMeta) error {
	return f(ctx, state, payload, meta)
}

// Version is a named set of updater and effect bindings keyed by action name.
// An action without a binding is a no-op for that version.
type Version[S any] struct {
	Name     string
	Updaters map[string]Updater[S]
	Effects  map[string]Effect[S]
}
