package source

import (
	"context"
	"errors"

	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

// ErrEndOfStream is returned by Next when no further block is currently available.
var ErrEndOfStream = errors.New("end of block stream")

// BlockSource yields blocks in ascending order and can be repositioned.
type BlockSource interface {
	// Next returns the next block, or ErrEndOfStream when none is available yet.
	Next(ctx context.Context) (*handler.Block, error)

	// Seek makes the following Next return blockNumber.
	Seek(ctx context.Context, blockNumber uint64) error
}

// HashLookup exposes the canonical hash the source currently holds for a block number.
type HashLookup interface {
	// BlockHash returns the hash of blockNumber and false when the source does not have it.
	BlockHash(ctx context.Context, blockNumber uint64) (string, bool, error)
}

// Refresher is implemented by sources that can pick up blocks appended after they were opened.
type Refresher interface {
	Refresh(ctx context.Context) error
}
