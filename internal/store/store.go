package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/db"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/store/migrations"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/russross/meddler"
)

var (
	_ handler.StateStore[*Session] = (*Store)(nil)
	_ handler.IndexStateGateway    = (*Store)(nil)
	_ handler.Rollbacker           = (*Store)(nil)
)

// RollbackHook reverts application data above blockNumber inside the rollback transaction.
type RollbackHook func(ctx context.Context, session *Session, blockNumber uint64) error

// Option configures a Store.
type Option func(*Store)

// WithMaintenance makes every database operation hold the maintenance operation lock.
func WithMaintenance(m db.Maintenance) Option {
	return func(s *Store) {
		s.maintenance = m
	}
}

// WithRollbackHook sets the application rollback executed by RollbackTo.
func WithRollbackHook(hook RollbackHook) Option {
	return func(s *Store) {
		s.rollbackHook = hook
	}
}

// WithHistoryRetention keeps only the last n bookmarks in the rollback history. 0 keeps all of them.
func WithHistoryRetention(n uint64) Option {
	return func(s *Store) {
		s.historyRetention = n
	}
}

// Store keeps application state and the bookmark in one SQLite database, so that a block's
// mutations and its bookmark commit in the same transaction.
type Store struct {
	db               *sql.DB
	log              *logger.Logger
	stateLog         *logger.Logger
	maintenance      db.Maintenance
	rollbackHook     RollbackHook
	historyRetention uint64
}

type txKey struct{}

// New creates a Store over an already migrated database.
func New(database *sql.DB, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:          database,
		log:         log.WithComponent(common.ComponentIndexState),
		stateLog:    log.WithComponent(common.ComponentStateStore),
		maintenance: db.NoOpMaintenance{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open opens the database described by cfg and applies the engine and application migrations.
func Open(cfg config.DatabaseConfig, appMigrations []db.Migration, log *logger.Logger,
	opts ...Option) (*Store, error) {
	database, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	all := append(migrations.Migrations(), appMigrations...)
	if err := db.RunMigrationsDB(log, database, all); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return New(database, log, opts...), nil
}

// OpenExisting opens the database described by cfg without running any migration, so that it can
// be read whatever application migrations were applied to it. The engine tables must exist.
func OpenExisting(cfg config.DatabaseConfig, log *logger.Logger, opts ...Option) (*Store, error) {
	database, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var tables int
	if err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('index_state', 'index_state_history')`).Scan(&tables); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to inspect database %s: %w", cfg.Path, err)
	}
	if tables != 2 {
		database.Close()
		return nil, fmt.Errorf("database %s has no index state, run the handler first", cfg.Path)
	}

	return New(database, log, opts...), nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithState implements handler.StateStore.
func (s *Store) WithState(ctx context.Context, fn func(ctx context.Context, state *Session) error) error {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &Session{ctx: ctx, q: tx})
	})
}

// View implements handler.StateStore.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, state *Session) error) error {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return fn(ctx, &Session{ctx: ctx, q: s.db})
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		db.TransactionLog(db.TxFailed, time.Since(start))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.stateLog.Errorw("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		db.TransactionLog(db.TxRolledBack, time.Since(start))
		return err
	}

	if err := tx.Commit(); err != nil {
		db.TransactionLog(db.TxFailed, time.Since(start))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.TransactionLog(db.TxCommitted, time.Since(start))

	return nil
}

// querier returns the transaction carried by ctx, or the database together with the
// maintenance lock when ctx carries none.
func (s *Store) querier(ctx context.Context) (meddler.DB, func()) {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx, func() {}
	}

	return s.db, s.maintenance.AcquireOperationLock()
}
