package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/ChainDemux/internal/db"
)

//go:embed 001_index_state.sql
var mig001 string

// Migrations returns the schema owned by the engine itself.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_index_state.sql",
			SQL: mig001,
		},
	}
}
