package rollback

import (
	"context"
	"errors"
	"fmt"

	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/goran-ethernal/ChainDemux/pkg/source"
)

// ErrNoCommonAncestor is returned when no committed block within reach matches the source chain.
var ErrNoCommonAncestor = errors.New("no common ancestor found")

// Strategy decides which committed block state is reverted to after a fork.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// RollbackPoint returns the block number whose state is kept. Everything above it is reverted.
	RollbackPoint(ctx context.Context, fork *handler.ForkDetectedError, current *handler.IndexState) (uint64, error)
}

// HistoryReader returns the bookmarks recorded when blocks were committed.
type HistoryReader interface {
	// IndexStateAt returns the bookmark of blockNumber, nil when the history does not hold it.
	IndexStateAt(ctx context.Context, blockNumber uint64) (*handler.IndexState, error)

	// FirstCommittedBlock returns the first block committed since the bookmark was last empty.
	// ok is false when nothing is committed.
	FirstCommittedBlock(ctx context.Context) (blockNumber uint64, ok bool, err error)
}

// FixedDepth reverts a fixed number of committed blocks.
type FixedDepth struct {
	Depth uint64
}

// Name implements Strategy.
func (f *FixedDepth) Name() string {
	return config.RollbackStrategyFixed
}

// RollbackPoint implements Strategy.
func (f *FixedDepth) RollbackPoint(
	_ context.Context,
	_ *handler.ForkDetectedError,
	current *handler.IndexState,
) (uint64, error) {
	if current == nil {
		return 0, errors.New("cannot roll back without an index state")
	}

	depth := max(f.Depth, 1)
	if depth > current.BlockNumber {
		return 0, nil
	}

	return current.BlockNumber - depth, nil
}

// CommonAncestor walks the committed history downwards until the recorded hash matches the
// hash the source now reports for the same block. Walking below the first committed block
// means nothing committed is on the source chain, so that block's predecessor is returned.
type CommonAncestor struct {
	History  HistoryReader
	Lookup   source.HashLookup
	MaxDepth uint64
}

// Name implements Strategy.
func (c *CommonAncestor) Name() string {
	return config.RollbackStrategyAncestor
}

// RollbackPoint implements Strategy.
func (c *CommonAncestor) RollbackPoint(
	ctx context.Context,
	fork *handler.ForkDetectedError,
	current *handler.IndexState,
) (uint64, error) {
	if current == nil {
		return 0, errors.New("cannot roll back without an index state")
	}

	// the committed head itself is already known to be off the source chain
	if current.BlockNumber == 0 {
		return 0, nil
	}

	lowest := uint64(0)
	if c.MaxDepth > 0 && current.BlockNumber > c.MaxDepth {
		lowest = current.BlockNumber - c.MaxDepth
	}

	for n := current.BlockNumber - 1; ; n-- {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		committed, err := c.History.IndexStateAt(ctx, n)
		if err != nil {
			return 0, fmt.Errorf("failed to read committed state at block %d: %w", n, err)
		}
		if committed == nil {
			first, ok, err := c.History.FirstCommittedBlock(ctx)
			if err != nil {
				return 0, fmt.Errorf("failed to read first committed block: %w", err)
			}
			if !ok || n < first {
				return n, nil
			}

			return 0, fmt.Errorf("%w: history ends above block %d (fork at %d)",
				ErrNoCommonAncestor, n, fork.BlockNumber)
		}

		hash, ok, err := c.Lookup.BlockHash(ctx, n)
		if err != nil {
			return 0, fmt.Errorf("failed to look up source hash at block %d: %w", n, err)
		}
		if !ok {
			return 0, fmt.Errorf("%w: source has no block %d (fork at %d)", ErrNoCommonAncestor, n, fork.BlockNumber)
		}

		if hash == committed.BlockHash {
			return n, nil
		}

		if n == lowest {
			return 0, fmt.Errorf("%w: searched %d blocks below %d", ErrNoCommonAncestor,
				current.BlockNumber-lowest, current.BlockNumber)
		}
	}
}

// NewStrategy builds the strategy selected by cfg. The ancestor strategy needs both history and lookup.
func NewStrategy(cfg config.RollbackConfig, history HistoryReader, lookup source.HashLookup) (Strategy, error) {
	switch cfg.Strategy {
	case config.RollbackStrategyFixed, "":
		return &FixedDepth{Depth: cfg.Depth}, nil
	case config.RollbackStrategyAncestor:
		if history == nil || lookup == nil {
			return nil, errors.New("ancestor rollback needs index state history and a source hash lookup")
		}
		return &CommonAncestor{History: history, Lookup: lookup, MaxDepth: cfg.MaxDepth}, nil
	default:
		return nil, fmt.Errorf("unknown rollback strategy: %s", cfg.Strategy)
	}
}
