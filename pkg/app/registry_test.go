package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/goran-ethernal/ChainDemux/internal/store"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/stretchr/testify/require"
)

// resetRegistry clears the factory registry for testing
func resetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Factory)
}

func testFactory(name string) Factory {
	return func(cfg config.HandlerConfig, deps Deps) (*Application, error) {
		return &Application{
			Name: name,
			Versions: []handler.Version[*store.Session]{{
				Name: "v1",
				Updaters: map[string]handler.Updater[*store.Session]{
					"noop": handler.UpdaterFunc[*store.Session](
						func(*store.Session, json.RawMessage, handler.BlockMeta) (string, error) {
							return "", nil
						}),
				},
			}},
			Rollback: func(context.Context, *store.Session, uint64) error { return nil },
		}, nil
	}
}

func TestRegister(t *testing.T) {
	// Cannot use t.Parallel() because it modifies the global registry
	resetRegistry()
	defer resetRegistry()

	Register("Token", testFactory("token"))

	require.NotNil(t, GetFactory("token"))
	require.NotNil(t, GetFactory("TOKEN"))
	require.Nil(t, GetFactory("other"))

	// overwriting keeps a single entry
	Register("token", testFactory("token2"))
	require.Equal(t, []string{"token"}, ListRegistered())

	application, err := Create(config.HandlerConfig{Type: "token"}, Deps{})
	require.NoError(t, err)
	require.Equal(t, "token2", application.Name)
}

func TestListRegistered(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	require.Empty(t, ListRegistered())

	Register("zeta", testFactory("zeta"))
	Register("alpha", testFactory("alpha"))
	Register("Mid", testFactory("mid"))

	require.Equal(t, []string{"alpha", "mid", "zeta"}, ListRegistered())
}

func TestCreate(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	Register("ok", testFactory("ok"))
	Register("broken", func(config.HandlerConfig, Deps) (*Application, error) {
		return nil, errors.New("missing option")
	})
	Register("empty", func(config.HandlerConfig, Deps) (*Application, error) {
		return &Application{Name: "empty"}, nil
	})
	Register("norollback", func(cfg config.HandlerConfig, deps Deps) (*Application, error) {
		a, _ := testFactory("norollback")(cfg, deps)
		a.Rollback = nil
		return a, nil
	})

	tests := []struct {
		name    string
		appType string
		wantErr string
	}{
		{name: "registered", appType: "OK"},
		{name: "unknown", appType: "nope", wantErr: "unknown application type: nope"},
		{name: "factory error", appType: "broken", wantErr: "missing option"},
		{name: "no versions", appType: "empty", wantErr: "at least one handler version is required"},
		{name: "no rollback", appType: "norollback", wantErr: "rollback hook is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			application, err := Create(config.HandlerConfig{Type: tt.appType}, Deps{})
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, "ok", application.Name)
		})
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				Register("shared", testFactory("shared"))
			} else {
				_ = GetFactory("shared")
				_ = ListRegistered()
			}
		}(i)
	}
	wg.Wait()

	require.NotNil(t, GetFactory("shared"))
}
