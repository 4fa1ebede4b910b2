package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
)

const (
	RollbackStrategyFixed    = "fixed"
	RollbackStrategyAncestor = "ancestor"
)

// Config represents the complete configuration for ChainDemux.
type Config struct {
	// Handler selects the registered application and its handler options
	Handler HandlerConfig `yaml:"handler" json:"handler" toml:"handler"`

	// Source configures where blocks are read from
	Source SourceConfig `yaml:"source" json:"source" toml:"source"`

	// DB contains the state database configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Runner configures the block loop
	Runner RunnerConfig `yaml:"runner" json:"runner" toml:"runner"`

	// Notifications configures where effects publish notifications
	Notifications *NotificationsConfig `yaml:"notifications,omitempty" json:"notifications,omitempty" toml:"notifications,omitempty"` //nolint:lll

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"` //nolint:lll

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// HandlerConfig selects the application whose handler versions process the blocks.
type HandlerConfig struct {
	// Type is the registered application type (case-insensitive)
	Type string `yaml:"type" json:"type" toml:"type"`

	// Name identifies this deployment in logs
	Name string `yaml:"name" json:"name" toml:"name"`

	// EffectsEnabled turns the effect pipeline on or off (default: on)
	EffectsEnabled *bool `yaml:"effects_enabled,omitempty" json:"effects_enabled,omitempty" toml:"effects_enabled,omitempty"` //nolint:lll

	// Options are application specific settings
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty" toml:"options,omitempty"`
}

// EffectsOn reports whether effects should run.
func (h *HandlerConfig) EffectsOn() bool {
	return h.EffectsEnabled == nil || *h.EffectsEnabled
}

// ApplyDefaults sets default values for optional handler configuration fields.
func (h *HandlerConfig) ApplyDefaults() {
	if h.Name == "" {
		h.Name = h.Type
	}
	if h.Options == nil {
		h.Options = make(map[string]string)
	}
}

// SourceConfig configures the JSON-lines block source.
type SourceConfig struct {
	// Path is the file with one JSON encoded block per line
	Path string `yaml:"path" json:"path" toml:"path"`

	// Follow keeps polling the file for appended blocks instead of stopping at its end
	Follow bool `yaml:"follow" json:"follow" toml:"follow"`

	// PollInterval is how often the file is re-read in follow mode
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`
}

// ApplyDefaults sets default values for optional source configuration fields.
func (s *SourceConfig) ApplyDefaults() {
	if s.PollInterval.Duration == 0 {
		s.PollInterval = common.NewDuration(2 * time.Second) //nolint:mnd
	}
}

// RunnerConfig configures the block loop.
type RunnerConfig struct {
	// StartBlock is the first block to process when no index state is stored
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// ReplayUntilBlock marks blocks up to and including this number as replayed (effects are skipped)
	ReplayUntilBlock uint64 `yaml:"replay_until_block" json:"replay_until_block" toml:"replay_until_block"`

	// Rollback configures fork recovery
	Rollback RollbackConfig `yaml:"rollback" json:"rollback" toml:"rollback"`

	// Retry configures retries of blocks whose index state could not be loaded or saved
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional runner configuration fields.
func (r *RunnerConfig) ApplyDefaults() {
	r.Rollback.ApplyDefaults()

	if r.Retry == nil {
		r.Retry = &RetryConfig{}
	}
	r.Retry.ApplyDefaults()
}

// RollbackConfig configures how far back state is reverted when a fork is detected.
type RollbackConfig struct {
	// Strategy is "fixed" (revert a fixed number of blocks) or "ancestor" (search the common ancestor)
	Strategy string `yaml:"strategy" json:"strategy" toml:"strategy"`

	// Depth is the number of blocks reverted per fork by the fixed strategy
	Depth uint64 `yaml:"depth" json:"depth" toml:"depth"`

	// MaxDepth bounds the common ancestor search
	MaxDepth uint64 `yaml:"max_depth" json:"max_depth" toml:"max_depth"`

	// HistoryRetention is the number of most recent bookmarks kept for rollbacks.
	// Defaults to one more than the deepest rollback either strategy may ask for.
	HistoryRetention uint64 `yaml:"history_retention" json:"history_retention" toml:"history_retention"`
}

// ApplyDefaults sets default values for optional rollback configuration fields.
func (r *RollbackConfig) ApplyDefaults() {
	if r.Strategy == "" {
		r.Strategy = RollbackStrategyFixed
	}
	if r.Depth == 0 {
		r.Depth = 1
	}
	if r.MaxDepth == 0 {
		r.MaxDepth = 1000
	}
	if r.HistoryRetention == 0 {
		r.HistoryRetention = r.deepestRollback() + 1
	}
}

// deepestRollback is the number of blocks the configured strategy may revert at once.
func (r *RollbackConfig) deepestRollback() uint64 {
	if r.Strategy == RollbackStrategyAncestor {
		return r.MaxDepth
	}

	return r.Depth
}

// Validate checks if the rollback configuration is valid.
func (r *RollbackConfig) Validate() error {
	if r.Strategy != RollbackStrategyFixed && r.Strategy != RollbackStrategyAncestor {
		return fmt.Errorf("strategy must be one of: %s, %s", RollbackStrategyFixed, RollbackStrategyAncestor)
	}

	if deepest := r.deepestRollback(); r.HistoryRetention <= deepest {
		return fmt.Errorf("history_retention must be greater than %d so that a %s rollback finds its target",
			deepest, r.Strategy)
	}

	return nil
}

// RetryConfig represents retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial one)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks if the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("path is required")
	}

	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}

	return nil
}

// NotificationsConfig configures the Redis notification publisher used by effects.
type NotificationsConfig struct {
	// Address is the Redis address ("host:port")
	Address string `yaml:"address" json:"address" toml:"address"`

	// Username is the optional Redis ACL user
	Username string `yaml:"username,omitempty" json:"username,omitempty" toml:"username,omitempty"`

	// Password is the optional Redis password
	Password string `yaml:"password,omitempty" json:"password,omitempty" toml:"password,omitempty"`

	// DB is the Redis logical database
	DB int `yaml:"db" json:"db" toml:"db"`

	// KeyPrefix namespaces channels and streams
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" toml:"key_prefix"`

	// Stream additionally appends every notification to a capped Redis stream
	Stream bool `yaml:"stream" json:"stream" toml:"stream"`

	// StreamMaxLen caps the stream length (approximate trimming)
	StreamMaxLen int64 `yaml:"stream_max_len" json:"stream_max_len" toml:"stream_max_len"`
}

// ApplyDefaults sets default values for optional notifications configuration fields.
func (n *NotificationsConfig) ApplyDefaults() {
	if n.KeyPrefix == "" {
		n.KeyPrefix = "chaindemux"
	}
	if n.StreamMaxLen == 0 {
		n.StreamMaxLen = 10000
	}
}

// Validate checks if the notifications configuration is valid.
func (n *NotificationsConfig) Validate() error {
	if n.Address == "" {
		return fmt.Errorf("address is required")
	}
	if n.DB < 0 {
		return fmt.Errorf("db must not be negative")
	}

	return nil
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// Vacuum runs VACUUM after the WAL checkpoint
	Vacuum bool `yaml:"vacuum" json:"vacuum" toml:"vacuum"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - action-handler: Block continuity, updaters and effects
	//   - runner: Block loop, seeks and fork recovery
	//   - index-state: Bookmark persistence
	//   - state-store: Application state units of work
	//   - block-source: Block reading
	//   - rollback: Rollback point selection
	//   - notifier: Effect notifications
	//   - maintenance: Database maintenance
	//   - metrics: Metrics server
	//   - application: Application handler code
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Handler.ApplyDefaults()
	c.Source.ApplyDefaults()
	c.DB.ApplyDefaults()
	c.Runner.ApplyDefaults()

	if c.Notifications != nil {
		c.Notifications.ApplyDefaults()
	}
	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}
	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Handler.Type == "" {
		return fmt.Errorf("handler.type is required")
	}

	if c.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}

	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	if err := c.Runner.Rollback.Validate(); err != nil {
		return fmt.Errorf("runner.rollback: %w", err)
	}

	if c.Runner.Retry != nil && c.Runner.Retry.MaxAttempts < 1 {
		return fmt.Errorf("runner.retry.max_attempts must be at least 1")
	}

	if c.Notifications != nil {
		if err := c.Notifications.Validate(); err != nil {
			return fmt.Errorf("notifications: %w", err)
		}
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
