package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/ChainDemux/internal/db"
	"github.com/goran-ethernal/ChainDemux/internal/engine"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/stretchr/testify/require"
)

const entriesMigration = `-- +migrate Down
DROP TABLE IF EXISTS entries;

-- +migrate Up
CREATE TABLE entries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    block_number INTEGER NOT NULL,
    name         TEXT    NOT NULL
);
`

type entry struct {
	ID          int64  `meddler:"id,pk"`
	BlockNumber uint64 `meddler:"block_number"`
	Name        string `meddler:"name"`
}

func setupStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "state.db")}
	cfg.ApplyDefaults()

	s, err := Open(cfg, []db.Migration{{ID: "100_entries.sql", SQL: entriesMigration}}, logger.NewNopLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func countEntries(t *testing.T, s *Store) int {
	t.Helper()

	var n int
	require.NoError(t, s.View(context.Background(), func(_ context.Context, session *Session) error {
		return session.Scalar(&n, `SELECT COUNT(*) FROM entries`)
	}))

	return n
}

func hashOf(n uint64) string {
	return fmt.Sprintf("0x%04x", n)
}

func saveChain(t *testing.T, s *Store, from, to uint64, version string) {
	t.Helper()

	for n := from; n <= to; n++ {
		err := s.WithState(context.Background(), func(ctx context.Context, session *Session) error {
			if err := session.Insert("entries", &entry{BlockNumber: n, Name: fmt.Sprintf("e%d", n)}); err != nil {
				return err
			}
			return s.SaveIndexState(ctx, handler.IndexState{BlockNumber: n, BlockHash: hashOf(n), HandlerVersion: version})
		})
		require.NoError(t, err)
	}
}

func TestStore_IndexStateRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	state, err := s.LoadIndexState(ctx)
	require.NoError(t, err)
	require.Nil(t, state)

	require.NoError(t, s.SaveIndexState(ctx, handler.IndexState{BlockNumber: 7, BlockHash: "0xaa", HandlerVersion: "v1"}))
	require.NoError(t, s.SaveIndexState(ctx, handler.IndexState{BlockNumber: 8, BlockHash: "0xbb", HandlerVersion: "v2"}))

	state, err = s.LoadIndexState(ctx)
	require.NoError(t, err)
	require.Equal(t, &handler.IndexState{BlockNumber: 8, BlockHash: "0xbb", HandlerVersion: "v2"}, state)

	at, err := s.IndexStateAt(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "0xaa", at.BlockHash)

	at, err = s.IndexStateAt(ctx, 6)
	require.NoError(t, err)
	require.Nil(t, at)
}

func TestStore_WithStateCommitsTogether(t *testing.T) {
	s := setupStore(t)

	saveChain(t, s, 1, 3, "v1")

	require.Equal(t, 3, countEntries(t, s))

	state, err := s.LoadIndexState(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(3), state.BlockNumber)
}

func TestStore_WithStateRollsBackOnError(t *testing.T) {
	s := setupStore(t)
	saveChain(t, s, 1, 1, "v1")

	boom := errors.New("boom")
	err := s.WithState(context.Background(), func(ctx context.Context, session *Session) error {
		require.NoError(t, session.Insert("entries", &entry{BlockNumber: 2, Name: "lost"}))
		require.NoError(t, s.SaveIndexState(ctx, handler.IndexState{BlockNumber: 2, BlockHash: hashOf(2)}))

		// the transaction sees its own bookmark
		inside, err := s.LoadIndexState(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(2), inside.BlockNumber)

		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Equal(t, 1, countEntries(t, s))

	state, err := s.LoadIndexState(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), state.BlockNumber)

	at, err := s.IndexStateAt(context.Background(), 2)
	require.NoError(t, err)
	require.Nil(t, at)
}

func TestStore_RollbackTo(t *testing.T) {
	var hookCalls []uint64
	s := setupStore(t, WithRollbackHook(func(_ context.Context, session *Session, blockNumber uint64) error {
		hookCalls = append(hookCalls, blockNumber)
		_, err := session.Exec(`DELETE FROM entries WHERE block_number > ?`, blockNumber)
		return err
	}))

	saveChain(t, s, 1, 3, "v1")
	saveChain(t, s, 4, 5, "v2")

	require.NoError(t, s.RollbackTo(context.Background(), 3))
	require.Equal(t, []uint64{3}, hookCalls)
	require.Equal(t, 3, countEntries(t, s))

	state, err := s.LoadIndexState(context.Background())
	require.NoError(t, err)
	require.Equal(t, &handler.IndexState{BlockNumber: 3, BlockHash: hashOf(3), HandlerVersion: "v1"}, state)

	history, err := s.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// rolling back below the first recorded block clears the bookmark
	require.NoError(t, s.RollbackTo(context.Background(), 0))
	require.Zero(t, countEntries(t, s))

	state, err = s.LoadIndexState(context.Background())
	require.NoError(t, err)
	require.Nil(t, state)
}

func TestStore_RollbackHookFailureKeepsState(t *testing.T) {
	s := setupStore(t, WithRollbackHook(func(context.Context, *Session, uint64) error {
		return errors.New("cannot revert")
	}))
	saveChain(t, s, 1, 3, "v1")

	require.ErrorContains(t, s.RollbackTo(context.Background(), 1), "cannot revert")

	state, err := s.LoadIndexState(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(3), state.BlockNumber)
}

func TestStore_HistoryRetention(t *testing.T) {
	s := setupStore(t, WithHistoryRetention(2))
	saveChain(t, s, 1, 6, "v1")

	history, err := s.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, uint64(5), history[0].BlockNumber)
	require.Equal(t, uint64(6), history[1].BlockNumber)
}

func TestStore_FirstCommittedBlock(t *testing.T) {
	s := setupStore(t, WithHistoryRetention(2))
	ctx := context.Background()

	_, ok, err := s.FirstCommittedBlock(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	saveChain(t, s, 4, 8, "v1")

	// pruning the history keeps the first committed block
	first, ok, err := s.FirstCommittedBlock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(4), first)

	require.NoError(t, s.RollbackTo(ctx, 7))

	first, ok, err = s.FirstCommittedBlock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(4), first)

	require.NoError(t, s.RollbackTo(ctx, 3))

	_, ok, err = s.FirstCommittedBlock(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	saveChain(t, s, 10, 11, "v1")

	first, ok, err = s.FirstCommittedBlock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), first)
}

func TestStore_OpenExisting(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "state.db")}
	cfg.ApplyDefaults()

	written, err := Open(cfg, []db.Migration{{ID: "100_entries.sql", SQL: entriesMigration}}, logger.NewNopLogger())
	require.NoError(t, err)
	saveChain(t, written, 1, 3, "v2")
	require.NoError(t, written.Close())

	// the application migration is unknown to a reader that only carries the engine migrations
	_, err = Open(cfg, nil, logger.NewNopLogger())
	require.Error(t, err)

	s, err := OpenExisting(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	state, err := s.LoadIndexState(context.Background())
	require.NoError(t, err)
	require.Equal(t, &handler.IndexState{BlockNumber: 3, BlockHash: hashOf(3), HandlerVersion: "v2"}, state)

	history, err := s.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 3, countEntries(t, s))
}

func TestStore_OpenExistingNeedsEngineTables(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "empty.db")}
	cfg.ApplyDefaults()

	_, err := OpenExisting(cfg, logger.NewNopLogger())
	require.ErrorContains(t, err, "has no index state")
}

func TestStore_EngineBlockIsAtomic(t *testing.T) {
	s := setupStore(t)

	record := func(version string) handler.Updater[*Session] {
		return handler.UpdaterFunc[*Session](func(session *Session, payload json.RawMessage, meta handler.BlockMeta) (string, error) {
			var p struct {
				Name string `json:"name"`
				Next string `json:"next"`
				Fail bool   `json:"fail"`
			}
			if err := json.Unmarshal(payload, &p); err != nil {
				return "", err
			}
			if p.Fail {
				return "", errors.New("rejected")
			}
			return p.Next, session.Insert("entries", &entry{BlockNumber: meta.BlockNumber, Name: version + ":" + p.Name})
		})
	}

	versions := []handler.Version[*Session]{
		{Name: "v1", Updaters: map[string]handler.Updater[*Session]{"app::put": record("v1")}},
		{Name: "v2", Updaters: map[string]handler.Updater[*Session]{"app::put": record("v2")}},
	}

	h, err := engine.New(versions, s, s, logger.NewNopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	block1 := &handler.Block{
		BlockNumber: 1,
		BlockHash:   hashOf(1),
		Actions: []handler.Action{
			{Name: "app::put", Payload: json.RawMessage(`{"name":"a"}`)},
			{Name: "app::put", Payload: json.RawMessage(`{"name":"b","next":"v2"}`)},
			{Name: "app::put", Payload: json.RawMessage(`{"name":"c"}`)},
		},
	}
	_, _, err = h.HandleBlock(ctx, block1, false, true)
	require.NoError(t, err)
	require.Equal(t, 3, countEntries(t, s))

	block2 := &handler.Block{
		BlockNumber:       2,
		BlockHash:         hashOf(2),
		PreviousBlockHash: hashOf(1),
		Actions: []handler.Action{
			{Name: "app::put", Payload: json.RawMessage(`{"name":"d","next":"v1"}`)},
			{Name: "app::put", Payload: json.RawMessage(`{"fail":true}`)},
		},
	}
	_, _, err = h.HandleBlock(ctx, block2, false, false)

	var updaterErr *handler.UpdaterError
	require.ErrorAs(t, err, &updaterErr)
	require.Equal(t, 3, countEntries(t, s))
	require.Equal(t, "v2", h.ActiveVersion())

	state, err := s.LoadIndexState(ctx)
	require.NoError(t, err)
	require.Equal(t, &handler.IndexState{BlockNumber: 1, BlockHash: hashOf(1), HandlerVersion: "v2"}, state)

	var names []*entry
	require.NoError(t, s.View(ctx, func(_ context.Context, session *Session) error {
		return session.QueryAll(&names, `SELECT * FROM entries ORDER BY id`)
	}))
	require.Equal(t, "v1:a", names[0].Name)
	require.Equal(t, "v1:b", names[1].Name)
	require.Equal(t, "v2:c", names[2].Name)
}
