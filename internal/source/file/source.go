// Package file implements a block source over a JSON-lines file, one block per line.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/validator"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/goran-ethernal/ChainDemux/pkg/source"
)

const maxLineSize = 16 * 1024 * 1024

var (
	_ source.BlockSource = (*Source)(nil)
	_ source.HashLookup  = (*Source)(nil)
	_ source.Refresher   = (*Source)(nil)
)

// Source serves blocks read from a JSON-lines file.
// When a block number appears more than once, the last line wins, so a reorg
// is expressed by appending the replacement blocks.
type Source struct {
	path string
	log  *logger.Logger

	mu      sync.Mutex
	blocks  map[uint64]*handler.Block
	first   uint64
	last    uint64
	next    uint64
	started bool
}

// Open reads path and returns a source positioned before its first block.
func Open(ctx context.Context, path string, log *logger.Logger) (*Source, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Source{path: path, log: log}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Refresh re-reads the file, picking up appended or replaced blocks.
func (s *Source) Refresh(ctx context.Context) error {
	blocks, err := readBlocks(ctx, s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := len(s.blocks)
	s.blocks = make(map[uint64]*handler.Block, len(blocks))
	s.first, s.last = 0, 0

	for i, b := range blocks {
		if i == 0 || b.BlockNumber < s.first {
			s.first = b.BlockNumber
		}
		if b.BlockNumber > s.last {
			s.last = b.BlockNumber
		}
		s.blocks[b.BlockNumber] = b
	}

	if len(s.blocks) != prev {
		s.log.Debugw("block file loaded",
			"path", s.path,
			"blocks", len(s.blocks),
			"first", s.first,
			"last", s.last,
		)
	}

	return nil
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
		return fmt.Errorf("block %d is before the first block %d in %s", blockNumber, s.first, s.path)
	}

	s.log.Debugw("seeking", "block", blockNumber)

	s.next = blockNumber
	s.started = true

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

// Bounds returns the lowest and highest block numbers currently loaded.
func (s *Source) Bounds() (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.first, s.last
}

func readBlocks(ctx context.Context, path string) ([]*handler.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open block file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize) //nolint:mnd

	var (
		blocks []*handler.Block
		line   int
	)

	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		b, err := parseBlock([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}

		blocks = append(blocks, b)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read block file: %w", err)
	}

	return blocks, nil
}

func parseBlock(data []byte) (*handler.Block, error) {
	var b handler.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid block json: %w", err)
	}

	if err := validator.Validate(&b); err != nil {
		return nil, errors.Join(fmt.Errorf("invalid block %d", b.BlockNumber), err)
	}

	return &b, nil
}
