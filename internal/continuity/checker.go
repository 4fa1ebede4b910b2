package continuity

import (
	"fmt"

	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

// Decision is the outcome of a continuity check.
type Decision int

const (
	// Proceed means the block directly extends the committed chain.
	Proceed Decision = iota
	// NeedSeek means the block is not the next expected one.
	NeedSeek
	// Fork means the block does not link to the committed block hash.
	Fork
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case NeedSeek:
		return "seek"
	case Fork:
		return "fork"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Result carries the decision and, depending on it, the block to seek to or the fork error.
type Result struct {
	Decision        Decision
	SeekBlockNumber uint64
	Err             error
}

// Check compares block against the last committed bookmark. A nil bookmark is a cold start
// and accepts any block. Check has no side effects.
func Check(block *handler.Block, last *handler.IndexState) Result {
	if last == nil {
		return Result{Decision: Proceed}
	}

	expected := last.BlockNumber + 1
	if block.BlockNumber != expected {
		return Result{Decision: NeedSeek, SeekBlockNumber: expected}
	}

	if block.PreviousBlockHash != last.BlockHash {
		return Result{Decision: Fork, Err: handler.NewForkError(block, last.BlockHash)}
	}

	return Result{Decision: Proceed}
}
