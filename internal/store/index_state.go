package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/russross/meddler"
)

// indexStateRow is the single bookmark row. FirstBlockNumber is the first block committed since
// the row was last deleted and is kept across updates.
type indexStateRow struct {
	ID               int64  `meddler:"id,pk"`
	FirstBlockNumber uint64 `meddler:"first_block_number"`
	BlockNumber      uint64 `meddler:"block_number"`
	BlockHash        string `meddler:"block_hash"`
	HandlerVersion   string `meddler:"handler_version"`
	UpdatedAt        int64  `meddler:"updated_at"`
}

type historyRow struct {
	BlockNumber    uint64 `meddler:"block_number"`
	BlockHash      string `meddler:"block_hash"`
	HandlerVersion string `meddler:"handler_version"`
}

func (r *historyRow) toIndexState() *handler.IndexState {
	return &handler.IndexState{
		BlockNumber:    r.BlockNumber,
		BlockHash:      r.BlockHash,
		HandlerVersion: r.HandlerVersion,
	}
}

// LoadIndexState implements handler.IndexStateGateway.
func (s *Store) LoadIndexState(ctx context.Context) (*handler.IndexState, error) {
	q, unlock := s.querier(ctx)
	defer unlock()

	var row indexStateRow
	if err := meddler.QueryRow(q, &row, `SELECT * FROM index_state WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Debug("no index state stored")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load index state: %w", err)
	}

	s.log.Debugf("loaded index state: block=%d, hash=%s, version=%s",
		row.BlockNumber, row.BlockHash, row.HandlerVersion)

	return &handler.IndexState{
		BlockNumber:    row.BlockNumber,
		BlockHash:      row.BlockHash,
		HandlerVersion: row.HandlerVersion,
	}, nil
}

// SaveIndexState implements handler.IndexStateGateway. When ctx carries the transaction of a
// unit of work the bookmark is written inside it.
func (s *Store) SaveIndexState(ctx context.Context, state handler.IndexState) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		q, _ := s.querier(ctx)
		return s.saveIndexState(q, state)
	}

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return s.inTx(ctx, func(_ context.Context, tx *sql.Tx) error {
		return s.saveIndexState(tx, state)
	})
}

func (s *Store) saveIndexState(q meddler.DB, state handler.IndexState) error {
	_, err := q.Exec(`
		INSERT INTO index_state (id, first_block_number, block_number, block_hash, handler_version, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash = excluded.block_hash,
			handler_version = excluded.handler_version,
			updated_at = excluded.updated_at`,
		state.BlockNumber, state.BlockNumber, state.BlockHash, state.HandlerVersion, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save index state: %w", err)
	}

	_, err = q.Exec(`INSERT OR REPLACE INTO index_state_history (block_number, block_hash, handler_version)
		VALUES (?, ?, ?)`, state.BlockNumber, state.BlockHash, state.HandlerVersion)
	if err != nil {
		return fmt.Errorf("failed to record index state history: %w", err)
	}

	if s.historyRetention > 0 && state.BlockNumber >= s.historyRetention {
		if _, err := q.Exec(`DELETE FROM index_state_history WHERE block_number <= ?`,
			state.BlockNumber-s.historyRetention); err != nil {
			return fmt.Errorf("failed to prune index state history: %w", err)
		}
	}

	s.log.Debugf("saved index state: block=%d, hash=%s, version=%s",
		state.BlockNumber, state.BlockHash, state.HandlerVersion)

	return nil
}

// IndexStateAt returns the bookmark recorded when blockNumber was committed, or nil if the
// history does not contain it.
func (s *Store) IndexStateAt(ctx context.Context, blockNumber uint64) (*handler.IndexState, error) {
	q, unlock := s.querier(ctx)
	defer unlock()

	var row historyRow
	err := meddler.QueryRow(q, &row, `SELECT * FROM index_state_history WHERE block_number = ?`, blockNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load index state history at block %d: %w", blockNumber, err)
	}

	return row.toIndexState(), nil
}

// FirstCommittedBlock implements rollback.HistoryReader. It reports the first block committed
// since the bookmark was last empty; ok is false when there is no bookmark.
func (s *Store) FirstCommittedBlock(ctx context.Context) (uint64, bool, error) {
	q, unlock := s.querier(ctx)
	defer unlock()

	var first uint64
	err := q.QueryRow(`SELECT first_block_number FROM index_state WHERE id = 1`).Scan(&first)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to load first committed block: %w", err)
	}

	return first, true, nil
}

// History returns the recorded bookmarks from fromBlock onwards in ascending order.
func (s *Store) History(ctx context.Context, fromBlock uint64) ([]*handler.IndexState, error) {
	q, unlock := s.querier(ctx)
	defer unlock()

	var rows []*historyRow
	err := meddler.QueryAll(q, &rows,
		`SELECT * FROM index_state_history WHERE block_number >= ? ORDER BY block_number ASC`, fromBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to load index state history: %w", err)
	}

	out := make([]*handler.IndexState, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toIndexState())
	}

	return out, nil
}

// RollbackTo implements handler.Rollbacker. In one transaction it runs the application rollback
// hook, drops history above blockNumber and moves the bookmark back to blockNumber. When the
// history holds nothing at or below blockNumber the bookmark is cleared.
func (s *Store) RollbackTo(ctx context.Context, blockNumber uint64) error {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if s.rollbackHook != nil {
			if err := s.rollbackHook(ctx, &Session{ctx: ctx, q: tx}, blockNumber); err != nil {
				return fmt.Errorf("application rollback failed: %w", err)
			}
		}

		if _, err := tx.Exec(`DELETE FROM index_state_history WHERE block_number > ?`, blockNumber); err != nil {
			return fmt.Errorf("failed to truncate index state history: %w", err)
		}

		var row historyRow
		err := meddler.QueryRow(tx, &row,
			`SELECT * FROM index_state_history ORDER BY block_number DESC LIMIT 1`)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.Exec(`DELETE FROM index_state`); err != nil {
				return fmt.Errorf("failed to clear index state: %w", err)
			}
			s.log.Warnf("rolled back to block %d: no earlier index state, starting over", blockNumber)
			return nil
		case err != nil:
			return fmt.Errorf("failed to read index state history: %w", err)
		}

		if err := s.saveIndexState(tx, *row.toIndexState()); err != nil {
			return err
		}

		s.log.Warnf("rolled back to block %d: index state now block=%d, hash=%s, version=%s",
			blockNumber, row.BlockNumber, row.BlockHash, row.HandlerVersion)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to roll back to block %d: %w", blockNumber, err)
	}

	return nil
}
