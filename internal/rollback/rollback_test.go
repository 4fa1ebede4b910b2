package rollback

import (
	"context"
	"errors"
	"testing"

	sourcemem "github.com/goran-ethernal/ChainDemux/internal/source/memory"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/stretchr/testify/require"
)

type historyMap map[uint64]string

func (h historyMap) IndexStateAt(_ context.Context, n uint64) (*handler.IndexState, error) {
	hash, ok := h[n]
	if !ok {
		return nil, nil
	}
	return &handler.IndexState{BlockNumber: n, BlockHash: hash, HandlerVersion: "v1"}, nil
}

func (h historyMap) FirstCommittedBlock(context.Context) (uint64, bool, error) {
	var (
		first uint64
		found bool
	)
	for n := range h {
		if !found || n < first {
			first, found = n, true
		}
	}
	return first, found, nil
}

// prunedHistory lost everything below the blocks it still holds.
type prunedHistory struct {
	historyMap
	first uint64
}

func (h prunedHistory) FirstCommittedBlock(context.Context) (uint64, bool, error) {
	return h.first, true, nil
}

type failingHistory struct{}

func (failingHistory) IndexStateAt(context.Context, uint64) (*handler.IndexState, error) {
	return nil, errors.New("disk on fire")
}

func (failingHistory) FirstCommittedBlock(context.Context) (uint64, bool, error) {
	return 0, false, errors.New("disk on fire")
}

type failingFirstBlock struct {
	historyMap
}

func (failingFirstBlock) FirstCommittedBlock(context.Context) (uint64, bool, error) {
	return 0, false, errors.New("locked")
}

func forkAt(n uint64) *handler.ForkDetectedError {
	return &handler.ForkDetectedError{BlockNumber: n, BlockHash: "new", PreviousBlockHash: "new-prev"}
}

func TestFixedDepth(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		depth   uint64
		current uint64
		want    uint64
	}{
		{name: "single block", depth: 1, current: 10, want: 9},
		{name: "zero depth reverts one block", depth: 0, current: 10, want: 9},
		{name: "deeper", depth: 4, current: 10, want: 6},
		{name: "deeper than chain", depth: 20, current: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &FixedDepth{Depth: tt.depth}

			got, err := s.RollbackPoint(ctx, forkAt(tt.current+1), &handler.IndexState{BlockNumber: tt.current})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := (&FixedDepth{Depth: 1}).RollbackPoint(ctx, forkAt(1), nil)
	require.Error(t, err)
}

func TestCommonAncestor(t *testing.T) {
	ctx := context.Background()

	committed := historyMap{5: "a5", 6: "a6", 7: "a7", 8: "a8"}
	src := sourcemem.New([]*handler.Block{
		{BlockNumber: 5, BlockHash: "a5"},
		{BlockNumber: 6, BlockHash: "a6", PreviousBlockHash: "a5"},
		{BlockNumber: 7, BlockHash: "b7", PreviousBlockHash: "a6"},
		{BlockNumber: 8, BlockHash: "b8", PreviousBlockHash: "b7"},
		{BlockNumber: 9, BlockHash: "b9", PreviousBlockHash: "b8"},
	})
	current := &handler.IndexState{BlockNumber: 8, BlockHash: "a8"}

	t.Run("finds the last shared block", func(t *testing.T) {
		s := &CommonAncestor{History: committed, Lookup: src}

		got, err := s.RollbackPoint(ctx, forkAt(9), current)
		require.NoError(t, err)
		require.Equal(t, uint64(6), got)
	})

	t.Run("max depth exceeded", func(t *testing.T) {
		s := &CommonAncestor{History: committed, Lookup: src, MaxDepth: 1}

		_, err := s.RollbackPoint(ctx, forkAt(9), current)
		require.ErrorIs(t, err, ErrNoCommonAncestor)
	})

	t.Run("history pruned", func(t *testing.T) {
		s := &CommonAncestor{History: prunedHistory{historyMap: historyMap{8: "a8"}, first: 2}, Lookup: src}

		_, err := s.RollbackPoint(ctx, forkAt(9), current)
		require.ErrorIs(t, err, ErrNoCommonAncestor)
	})

	t.Run("nothing committed is on the source chain", func(t *testing.T) {
		tests := []struct {
			name    string
			history historyMap
			current *handler.IndexState
			want    uint64
		}{
			{
				name:    "single block",
				history: historyMap{1: "a1"},
				current: &handler.IndexState{BlockNumber: 1, BlockHash: "a1"},
				want:    0,
			},
			{
				name:    "started above genesis",
				history: historyMap{5: "x5", 6: "x6", 7: "x7"},
				current: &handler.IndexState{BlockNumber: 7, BlockHash: "x7"},
				want:    4,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := &CommonAncestor{History: tt.history, Lookup: src}

				got, err := s.RollbackPoint(ctx, forkAt(tt.current.BlockNumber+1), tt.current)
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("first committed block read failure", func(t *testing.T) {
		s := &CommonAncestor{History: failingFirstBlock{historyMap: historyMap{8: "a8"}}, Lookup: src}

		_, err := s.RollbackPoint(ctx, forkAt(9), current)
		require.ErrorContains(t, err, "locked")
	})

	t.Run("source does not reach back", func(t *testing.T) {
		short := sourcemem.New([]*handler.Block{{BlockNumber: 8, BlockHash: "b8"}})
		s := &CommonAncestor{History: committed, Lookup: short}

		_, err := s.RollbackPoint(ctx, forkAt(9), current)
		require.ErrorIs(t, err, ErrNoCommonAncestor)
	})

	t.Run("history read failure", func(t *testing.T) {
		s := &CommonAncestor{History: failingHistory{}, Lookup: src}

		_, err := s.RollbackPoint(ctx, forkAt(9), current)
		require.ErrorContains(t, err, "disk on fire")
		require.NotErrorIs(t, err, ErrNoCommonAncestor)
	})

	t.Run("genesis", func(t *testing.T) {
		s := &CommonAncestor{History: committed, Lookup: src}

		got, err := s.RollbackPoint(ctx, forkAt(1), &handler.IndexState{BlockNumber: 0, BlockHash: "g"})
		require.NoError(t, err)
		require.Zero(t, got)
	})
}

func TestNewStrategy(t *testing.T) {
	src := sourcemem.New(nil)

	s, err := NewStrategy(config.RollbackConfig{Strategy: config.RollbackStrategyFixed, Depth: 3}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, config.RollbackStrategyFixed, s.Name())

	s, err = NewStrategy(config.RollbackConfig{Strategy: config.RollbackStrategyAncestor}, historyMap{}, src)
	require.NoError(t, err)
	require.Equal(t, config.RollbackStrategyAncestor, s.Name())

	_, err = NewStrategy(config.RollbackConfig{Strategy: config.RollbackStrategyAncestor}, nil, src)
	require.Error(t, err)

	_, err = NewStrategy(config.RollbackConfig{Strategy: "sideways"}, nil, nil)
	require.Error(t, err)
}
