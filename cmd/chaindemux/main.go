package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Import built-in applications to register them
	_ "github.com/goran-ethernal/ChainDemux/examples/handlers/token"
	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/config"
	"github.com/goran-ethernal/ChainDemux/internal/db"
	"github.com/goran-ethernal/ChainDemux/internal/engine"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/metrics"
	"github.com/goran-ethernal/ChainDemux/internal/notify"
	"github.com/goran-ethernal/ChainDemux/internal/rollback"
	"github.com/goran-ethernal/ChainDemux/internal/runner"
	"github.com/goran-ethernal/ChainDemux/internal/source/file"
	"github.com/goran-ethernal/ChainDemux/internal/store"
	storemig "github.com/goran-ethernal/ChainDemux/internal/store/migrations"
	"github.com/goran-ethernal/ChainDemux/pkg/app"
	pkgconfig "github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          ChainDemux v%s                ║
║   Versioned Blockchain Action Handling    ║
╚═══════════════════════════════════════════╝
`
	shutdownTimeout = 10 * time.Second
)

var (
	configPath   string
	startBlock   string
	historyRange string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chaindemux",
	Short: "ChainDemux - versioned blockchain action handling",
	Long: `ChainDemux feeds blocks through a versioned set of action updaters,
keeps application state and the index state bookmark in one database transaction,
recovers from forks by rolling back and replaying, and runs side effects after commit.`,
	Version: version,
	RunE:    runHandler,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available application types",
	Long:  `List all registered application types that can be used as handler.type in the configuration file.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available application types:")
		types := app.ListRegistered()
		if len(types) == 0 {
			fmt.Println("  (no applications registered)")
			return
		}
		for _, t := range types {
			fmt.Printf("  - %s\n", t)
		}
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &jsonschema.Reflector{
			FieldNameTag:   "json",
			DoNotReference: true,
		}
		schema := r.Reflect(&pkgconfig.Config{})
		schema.Title = "ChainDemux configuration"

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(schema)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the stored index state",
	Long:  `Print the index state bookmark saved in the state database and, with --history, the bookmarks kept for rollbacks.`,
	RunE:  printStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.Flags().StringVar(&startBlock, "start-block", "",
		"override runner.start_block (decimal or 0x-prefixed hex)")
	statusCmd.Flags().StringVar(&historyRange, "history", "",
		`also print the saved bookmarks in the block range "from[:to]"`)
	rootCmd.AddCommand(listCmd, schemaCmd, statusCmd)
}

func loadConfig() (*pkgconfig.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Logging == nil {
		cfg.Logging = &pkgconfig.LoggingConfig{}
		cfg.Logging.ApplyDefaults()
	}

	if startBlock != "" {
		n, err := common.ParseBlockNumber(startBlock)
		if err != nil {
			return nil, fmt.Errorf("invalid --start-block: %w", err)
		}
		cfg.Runner.StartBlock = n
	}

	return cfg, nil
}

func runHandler(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentApplication, cfg.Logging)

	// Initialize notifier
	var notifier notify.Notifier
	notifierLog := logger.NewComponentLoggerFromConfig(common.ComponentNotifier, cfg.Logging)
	if cfg.Notifications != nil {
		redisNotifier, err := notify.NewRedisNotifier(ctx, *cfg.Notifications, notifierLog)
		if err != nil {
			return fmt.Errorf("failed to create notifier: %w", err)
		}
		notifier = redisNotifier
	} else {
		notifier = notify.NewLogNotifier(notifierLog)
	}
	defer notifier.Close()

	// Create application
	log.Infof("Creating application: %s (type: %s)", cfg.Handler.Name, cfg.Handler.Type)
	application, err := app.Create(cfg.Handler, app.Deps{
		Log:      logger.NewComponentLoggerFromConfig(common.ComponentApplication, cfg.Logging),
		Notifier: notifier,
	})
	if err != nil {
		return fmt.Errorf("failed to create application %s: %w", cfg.Handler.Name, err)
	}

	// Initialize database
	log.Info("Running database migrations...")
	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer database.Close()

	storeLog := logger.NewComponentLoggerFromConfig(common.ComponentStateStore, cfg.Logging)
	if err := db.RunMigrationsDB(storeLog, database,
		append(storemig.Migrations(), application.Migrations...)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	maintenance := db.NewMaintenance(
		cfg.DB.Path,
		database,
		cfg.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
	)

	st := store.New(database, storeLog,
		store.WithRollbackHook(application.Rollback),
		store.WithMaintenance(maintenance),
		store.WithHistoryRetention(cfg.Runner.Rollback.HistoryRetention),
	)

	h, err := engine.New(
		application.Versions,
		st,
		st,
		logger.NewComponentLoggerFromConfig(common.ComponentActionHandler, cfg.Logging),
		engine.WithEffects(cfg.Handler.EffectsOn()),
	)
	if err != nil {
		return fmt.Errorf("failed to create action handler: %w", err)
	}

	src, err := file.Open(ctx, cfg.Source.Path,
		logger.NewComponentLoggerFromConfig(common.ComponentBlockSource, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to open block source: %w", err)
	}

	strategy, err := rollback.NewStrategy(cfg.Runner.Rollback, st, src)
	if err != nil {
		return fmt.Errorf("failed to create rollback strategy: %w", err)
	}

	opts := []runner.Option{runner.WithIndexState(st)}
	if cfg.Source.Follow {
		opts = append(opts, runner.WithFollow(cfg.Source.PollInterval.Duration))
	}

	r, err := runner.New(cfg.Runner, src, h, st, strategy,
		logger.NewComponentLoggerFromConfig(common.ComponentRunner, cfg.Logging), opts...)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	// Initialize metrics server if enabled
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, func() any { return r.Status() },
			logger.NewComponentLoggerFromConfig(common.ComponentMetrics, cfg.Logging))
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if err := metricsServer.Stop(stopCtx); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	log.Infof("Starting ChainDemux with handler %s...", cfg.Handler.Name)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return maintenance.Start(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return r.Run(gctx)
	})

	err = g.Wait()
	if stopErr := maintenance.Stop(); stopErr != nil {
		log.Warnf("Failed to stop maintenance: %v", stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("runner failed: %w", err)
	}

	status := r.Status()
	log.Infow("ChainDemux stopped",
		"active_version", status.ActiveVersion,
		"blocks_handled", status.BlocksHandled,
		"rollbacks", status.Rollbacks,
	)
	return nil
}

func printStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewComponentLoggerFromConfig(common.ComponentIndexState, cfg.Logging)

	st, err := store.OpenExisting(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	state, err := st.LoadIndexState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load index state: %w", err)
	}

	out := map[string]any{
		"handler":     cfg.Handler.Name,
		"index_state": state,
	}

	if historyRange != "" {
		from, to, err := common.ParseBlockRange(historyRange)
		if err != nil {
			return fmt.Errorf("invalid --history: %w", err)
		}

		history, err := st.History(ctx, from)
		if err != nil {
			return fmt.Errorf("failed to load index state history: %w", err)
		}

		inRange := make([]*handler.IndexState, 0, len(history))
		for _, s := range history {
			if s.BlockNumber <= to {
				inRange = append(inRange, s)
			}
		}
		out["history"] = inRange
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
