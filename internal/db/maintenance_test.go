package db

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestNewMaintenance_NilConfig(t *testing.T) {
	m := NewMaintenance("unused.db", nil, nil, logger.NewNopLogger())
	require.IsType(t, NoOpMaintenance{}, m)

	unlock := m.AcquireOperationLock()
	unlock()
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.RunMaintenance(context.Background()))
	require.NoError(t, m.Stop())
}

func TestMaintenanceCoordinator_RunMaintenance(t *testing.T) {
	sqlDB, dbPath := setupTestDB(t, "WAL")

	for range 1000 {
		_, err := sqlDB.Exec(`INSERT INTO test_data (data) VALUES ('payload')`)
		require.NoError(t, err)
	}

	walBefore, err := os.Stat(dbPath + "-wal")
	require.NoError(t, err)
	require.Positive(t, walBefore.Size())

	m := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		WALCheckpointMode: "TRUNCATE",
		Vacuum:            true,
	}, logger.NewNopLogger())

	require.NoError(t, m.RunMaintenance(context.Background()))

	runs, lastErr := m.Runs()
	require.Equal(t, uint64(1), runs)
	require.NoError(t, lastErr)

	if walAfter, err := os.Stat(dbPath + "-wal"); err == nil {
		require.LessOrEqual(t, walAfter.Size(), walBefore.Size())
	}
}

func TestMaintenanceCoordinator_SkipsCheckpointOutsideWAL(t *testing.T) {
	sqlDB, dbPath := setupTestDB(t, "DELETE")

	m := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{WALCheckpointMode: "PASSIVE"},
		logger.NewNopLogger())

	require.NoError(t, m.RunMaintenance(context.Background()))
}

func TestMaintenanceCoordinator_WaitsForOperations(t *testing.T) {
	sqlDB, dbPath := setupTestDB(t, "WAL")

	m := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{WALCheckpointMode: "PASSIVE"},
		logger.NewNopLogger())

	unlock := m.AcquireOperationLock()

	var finished atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, m.RunMaintenance(context.Background()))
		finished.Store(true)
	}()

	time.Sleep(50 * time.Millisecond)
	require.False(t, finished.Load(), "maintenance must wait for the running operation")

	unlock()
	wg.Wait()
	require.True(t, finished.Load())
}

func TestMaintenanceCoordinator_Background(t *testing.T) {
	sqlDB, dbPath := setupTestDB(t, "WAL")

	m := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(20 * time.Millisecond),
		WALCheckpointMode: "PASSIVE",
	}, logger.NewNopLogger())

	require.NoError(t, m.Start(context.Background()))

	require.Eventually(t, func() bool {
		runs, _ := m.Runs()
		return runs >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
}

func TestMaintenanceCoordinator_CancelledContext(t *testing.T) {
	sqlDB, dbPath := setupTestDB(t, "WAL")

	m := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{WALCheckpointMode: "PASSIVE"},
		logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.RunMaintenance(ctx), context.Canceled)
}
