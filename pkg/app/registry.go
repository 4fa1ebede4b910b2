package app

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
)

// Factory creates an application from its handler configuration.
type Factory func(cfg config.HandlerConfig, deps Deps) (*Application, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers an application factory under the given type name.
// This is typically called in init() functions of application packages.
// The type name is case-insensitive and will be stored in lowercase.
func Register(appType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(appType)
	if _, exists := registry[name]; exists {
		logger.GetDefaultLogger().Infof("application with name %s already in application registry. "+
			"It will be overwritten.", name)
	}

	registry[name] = factory
}

// GetFactory returns the factory for the given application type, or nil if it is not registered.
func GetFactory(appType string) Factory {
	mu.RLock()
	defer mu.RUnlock()

	return registry[strings.ToLower(appType)]
}

// ListRegistered returns the registered application types in sorted order.
func ListRegistered() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)

	return types
}

// Create builds and validates the application registered under cfg.Type.
func Create(cfg config.HandlerConfig, deps Deps) (*Application, error) {
	factory := GetFactory(cfg.Type)
	if factory == nil {
		return nil, fmt.Errorf("unknown application type: %s (registered types: %v)", cfg.Type, ListRegistered())
	}

	if deps.Log == nil {
		deps.Log = logger.NewNopLogger()
	}

	application, err := factory(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create application %s: %w", cfg.Type, err)
	}

	if err := application.Validate(); err != nil {
		return nil, err
	}

	return application, nil
}
