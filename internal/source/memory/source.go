// Package memory provides a slice backed block source.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/goran-ethernal/ChainDemux/pkg/source"
)

var (
	_ source.BlockSource = (*Source)(nil)
	_ source.HashLookup  = (*Source)(nil)
)

// Source serves blocks from memory. The chain can be replaced at any time to simulate a reorg.
type Source struct {
	mu      sync.Mutex
	blocks  map[uint64]*handler.Block
	first   uint64
	next    uint64
	started bool
	seeks   []uint64
}

// New creates a source over blocks, which must be ordered by block number.
func New(blocks []*handler.Block) *Source {
	s := &Source{}
	s.SetChain(blocks)

	return s
}

// SetChain replaces the served chain without moving the cursor.
func (s *Source) SetChain(blocks []*handler.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks = make(map[uint64]*handler.Block, len(blocks))
	for _, b := range blocks {
		s.blocks[b.BlockNumber] = b
	}
	if len(blocks) > 0 {
		s.first = blocks[0].BlockNumber
	}
}

// Append adds blocks to the served chain, replacing blocks with the same number.
func (s *Source) Append(blocks ...*handler.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range blocks {
		if len(s.blocks) == 0 {
			s.first = b.BlockNumber
		}
		s.blocks[b.BlockNumber] = b
	}
}

// Next implements source.BlockSource.
func (s *Source) Next(ctx context.Context) (*handler.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.next = s.first
		s.started = true
	}

	b, ok := s.blocks[s.next]
	if !ok {
		return nil, source.ErrEndOfStream
	}
	s.next++

	return b, nil
}

// Seek implements source.BlockSource.
func (s *Source) Seek(_ context.Context, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.blocks) > 0 && blockNumber < s.first {
		return fmt.Errorf("block %d not available, source starts at %d", blockNumber, s.first)
	}

	s.next = blockNumber
	s.started = true
	s.seeks = append(s.seeks, blockNumber)

	return nil
}

// BlockHash implements source.HashLookup.
func (s *Source) BlockHash(_ context.Context, blockNumber uint64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockNumber]
	if !ok {
		return "", false, nil
	}

	return b.BlockHash, true, nil
}

// Seeks returns every block number the source was asked to seek to.
func (s *Source) Seeks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uint64, len(s.seeks))
	copy(out, s.seeks)

	return out
}
