package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
)

// Maintenance serializes database housekeeping against regular operations.
type Maintenance interface {
	// Start begins background maintenance if enabled.
	Start(ctx context.Context) error
	// Stop stops background maintenance and waits for completion.
	Stop() error
	// AcquireOperationLock acquires a shared lock for a database operation.
	// The returned function releases it.
	AcquireOperationLock() func()
	// RunMaintenance performs one maintenance pass.
	RunMaintenance(ctx context.Context) error
}

// NoOpMaintenance never runs maintenance and never blocks operations.
type NoOpMaintenance struct{}

func (NoOpMaintenance) Start(context.Context) error { return nil }
func (NoOpMaintenance) Stop() error { return nil }
func (NoOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (NoOpMaintenance) AcquireOperationLock() func() { return func() {} }

// MaintenanceCoordinator runs WAL checkpoints (and optionally VACUUM) with exclusive access.
// Regular operations hold the read side of opLock, maintenance holds the write side.
type MaintenanceCoordinator struct {
	db     *sql.DB
	dbPath string
	cfg    config.MaintenanceConfig
	log    *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	runs    uint64
	lastRun time.Time
	lastErr error
}

// NewMaintenance returns a coordinator for cfg, or NoOpMaintenance when cfg is nil.
func NewMaintenance(dbPath string, db *sql.DB, cfg *config.MaintenanceConfig, log *logger.Logger) Maintenance {
	if cfg == nil {
		return NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		dbPath: dbPath,
		cfg:    cfg,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start implements Maintenance.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.Info("background maintenance is disabled")
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.worker(ctx, m.cfg.CheckInterval.Duration)

	m.log.Infof("background maintenance started - interval: %v, checkpoint mode: %s",
		m.cfg.CheckInterval.Duration, m.cfg.WALCheckpointMode)

	return nil
}

// Stop implements Maintenance.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) worker(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil {
				m.log.Warnf("periodic maintenance failed: %v", err)
			}
		}
	}
}

// RunMaintenance implements Maintenance. It waits for in-flight operations to finish.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	start := time.Now()
	MaintenanceRunsInc()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	err := m.walCheckpoint()
	if err == nil && m.cfg.Vacuum {
		err = m.vacuum()
	}

	m.mu.Lock()
	m.runs++
	m.lastRun = time.Now().UTC()
	m.lastErr = err
	m.mu.Unlock()

	MaintenanceDurationLog(time.Since(start))

	if size, sizeErr := DBTotalSize(m.dbPath); sizeErr == nil {
		DBSizeLog(size)
	}

	if err != nil {
		MaintenanceOutcomeInc("error")
		return err
	}

	MaintenanceOutcomeInc("success")
	m.log.Debugf("maintenance completed in %v", time.Since(start))

	return nil
}

// AcquireOperationLock implements Maintenance.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// Runs returns the number of completed maintenance passes and the error of the last one.
func (m *MaintenanceCoordinator) Runs() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.runs, m.lastErr
}

func (m *MaintenanceCoordinator) walCheckpoint() error {
	var mode string
	if err := m.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}

	if !strings.EqualFold(mode, "wal") {
		m.log.Debug("database not in WAL mode, skipping WAL checkpoint")
		return nil
	}

	var busy, logFrames, checkpointed int
	err := m.db.QueryRow(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.cfg.WALCheckpointMode)).
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("failed to execute WAL checkpoint: %w", err)
	}

	WALCheckpointInc(strings.ToLower(m.cfg.WALCheckpointMode))
	m.log.Debugf("WAL checkpoint complete - mode: %s, busy: %d, log_frames: %d, checkpointed: %d",
		m.cfg.WALCheckpointMode, busy, logFrames, checkpointed)

	return nil
}

func (m *MaintenanceCoordinator) vacuum() error {
	if _, err := m.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}

	return nil
}
