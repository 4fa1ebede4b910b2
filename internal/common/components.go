package common

const (
	ComponentActionHandler = "action-handler"
	ComponentRunner        = "runner"
	ComponentIndexState    = "index-state"
	ComponentStateStore    = "state-store"
	ComponentBlockSource   = "block-source"
	ComponentRollback      = "rollback"
	ComponentNotifier      = "notifier"
	ComponentMaintenance   = "maintenance"
	ComponentMetrics       = "metrics"
	ComponentApplication   = "application"
)

var AllComponents = map[string]struct{}{
	ComponentActionHandler: {},
	ComponentRunner:        {},
	ComponentIndexState:    {},
	ComponentStateStore:    {},
	ComponentBlockSource:   {},
	ComponentRollback:      {},
	ComponentNotifier:      {},
	ComponentMaintenance:   {},
	ComponentMetrics:       {},
	ComponentApplication:   {},
}
