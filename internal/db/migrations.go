package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ChainDemux/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	UpDownSeparator  = "-- +migrate Up"
	downMarker       = "-- +migrate Down"
	dbPrefixReplacer = "/*dbprefix*/"
)

// Migration is one embedded SQL file. The Down section comes first, followed by the
// "-- +migrate Up" separator and the Up section. Occurrences of /*dbprefix*/ are replaced by Prefix.
type Migration struct {
	ID     string
	SQL    string
	Prefix string
}

// RunMigrationsDB applies all pending up migrations.
func RunMigrationsDB(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsDBExtended(log, db, migrations, migrate.Up, 0)
}

// RunMigrationsDBExtended applies at most maxMigrations migrations (0 means all) in direction dir.
func RunMigrationsDBExtended(
	log *logger.Logger,
	db *sql.DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	source, err := toMigrationSource(migrations)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(source.Migrations))
	for _, m := range source.Migrations {
		ids = append(ids, m.Id)
	}

	log.Debugf("running migrations (max %d/%d): %s", maxMigrations, len(ids), strings.Join(ids, ", "))

	n, err := migrate.ExecMax(db, "sqlite3", source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("failed to execute migrations %s: %w", strings.Join(ids, ", "), err)
	}

	log.Infof("applied %d migrations", n)

	return nil
}

func toMigrationSource(migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		prefixed := strings.ReplaceAll(m.SQL, dbPrefixReplacer, m.Prefix)

		down, up, found := strings.Cut(prefixed, UpDownSeparator)
		if !found {
			return nil, fmt.Errorf("migration %s missing '%s' separator", m.ID, UpDownSeparator)
		}

		if idx := strings.Index(down, downMarker); idx != -1 {
			down = down[idx+len(downMarker):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.Prefix + m.ID,
			Up:   []string{strings.TrimSpace(up)},
			Down: []string{strings.TrimSpace(down)},
		})
	}

	return source, nil
}
