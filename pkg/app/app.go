// Package app defines pluggable applications: the handler versions, schema and rollback logic
// of one deployment, selected by type name from the configuration.
package app

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/ChainDemux/internal/db"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/notify"
	"github.com/goran-ethernal/ChainDemux/internal/store"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

// Application is everything the engine needs from an integrator.
type Application struct {
	// Name is the registered application type
	Name string

	// Versions are the handler versions in registration order. The first one is the initial version.
	Versions []handler.Version[*store.Session]

	// Migrations create the application tables next to the index state tables
	Migrations []db.Migration

	// Rollback reverts application state above the given block inside the store's rollback transaction
	Rollback store.RollbackHook
}

// Validate checks that the application can be wired into the engine.
func (a *Application) Validate() error {
	if a.Name == "" {
		return errors.New("application name is required")
	}
	if len(a.Versions) == 0 {
		return fmt.Errorf("application %s: at least one handler version is required", a.Name)
	}
	if a.Rollback == nil {
		return fmt.Errorf("application %s: rollback hook is required", a.Name)
	}

	return nil
}

// Deps are the shared services handed to application factories.
type Deps struct {
	Log      *logger.Logger
	Notifier notify.Notifier
}
