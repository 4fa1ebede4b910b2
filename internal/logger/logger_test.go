package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type staticConfig struct {
	defaultLevel string
	development  bool
	levels       map[string]string
}

func (c *staticConfig) GetComponentLevel(component string) string {
	if level, ok := c.levels[component]; ok {
		return level
	}
	return c.defaultLevel
}

func (c *staticConfig) GetDefaultLevel() string { return c.defaultLevel }

func (c *staticConfig) IsDevelopment() bool { return c.development }

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		for level := range ValidLogLevels {
			l, err := NewLogger(level, dev)
			require.NoError(t, err, "level %s development %v", level, dev)
			require.Equal(t, level, l.GetLevel())
			require.Empty(t, l.GetComponent())
		}
	}

	l, err := NewLogger("verbose", false)
	require.ErrorContains(t, err, `invalid log level "verbose"`)
	require.Nil(t, l)

	// zap accepts these, the logger does not
	_, err = NewLogger("fatal", false)
	require.Error(t, err)
	_, err = NewLogger("", false)
	require.Error(t, err)
}

func TestLogger_SetLevelFilters(t *testing.T) {
	l, err := NewLogger("warn", false)
	require.NoError(t, err)

	require.False(t, l.atomicLevel.Enabled(zapcore.InfoLevel))
	require.True(t, l.atomicLevel.Enabled(zapcore.WarnLevel))

	require.NoError(t, l.SetLevel("debug"))
	require.True(t, l.atomicLevel.Enabled(zapcore.DebugLevel))

	require.Error(t, l.SetLevel("trace"))
	require.Equal(t, "debug", l.GetLevel())
}

func TestLogger_ComponentsShareLevel(t *testing.T) {
	root, err := NewLogger("info", false)
	require.NoError(t, err)

	runner := root.WithComponent("runner")
	handler := root.WithComponent("action-handler")
	require.Equal(t, "runner", runner.GetComponent())
	require.Equal(t, "action-handler", handler.GetComponent())

	require.NoError(t, root.SetLevel("error"))
	require.Equal(t, "error", runner.GetLevel())
	require.Equal(t, "error", handler.GetLevel())

	require.NoError(t, handler.SetLevel("debug"))
	require.Equal(t, "debug", root.GetLevel())
}

func TestNewComponentLogger(t *testing.T) {
	l := NewComponentLogger("block-source", "debug", true)
	require.Equal(t, "block-source", l.GetComponent())
	require.Equal(t, "debug", l.GetLevel())

	require.Panics(t, func() {
		_ = NewComponentLogger("block-source", "loud", false)
	})
}

func TestNewComponentLoggerFromConfig(t *testing.T) {
	cfg := &staticConfig{
		defaultLevel: "warn",
		levels:       map[string]string{"action-handler": "debug"},
	}

	tests := []struct {
		name      string
		component string
		cfg       LoggingConfig
		want      string
	}{
		{name: "component override", component: "action-handler", cfg: cfg, want: "debug"},
		{name: "default level", component: "index-state", cfg: cfg, want: "warn"},
		{name: "nil config", component: "rollback", cfg: nil, want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewComponentLoggerFromConfig(tt.component, tt.cfg)
			require.Equal(t, tt.component, l.GetComponent())
			require.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger().WithComponent("notifier")

	require.NotPanics(t, func() {
		l.Debugw("debug", "k", 1)
		l.Infof("info %d", 1)
		l.Warn("warn")
		l.Error("error")
	})
	require.NoError(t, l.Close())
}

func TestGetDefaultLogger(t *testing.T) {
	first := GetDefaultLogger()
	require.NotNil(t, first)
	require.Same(t, first, GetDefaultLogger())
}
