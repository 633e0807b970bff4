package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Status describes where a database sits relative to the embedded migrations.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// Pending reports how many migrations still need to run.
func (s Status) Pending() uint {
	if s.Current >= s.Latest {
		return 0
	}
	return s.Latest - s.Current
}

// CheckStatus verifies that the schema behind databaseURL is up to date.
// databaseURL uses the pgx5:// scheme.
func CheckStatus(databaseURL string) (Status, error) {
	latest, err := LatestVersion()
	if err != nil {
		return Status{}, err
	}
	st := Status{Latest: latest}

	m, err := newMigrate(databaseURL)
	if err != nil {
		return st, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return st, fmt.Errorf("database has no schema version (needs migration)")
		}
		return st, fmt.Errorf("failed to get database version: %w", err)
	}
	st.Current, st.Dirty = version, dirty

	if dirty {
		return st, fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}
	if version < latest {
		return st, fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latest, st.Pending())
	}
	if version > latest {
		return st, fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latest)
	}
	return st, nil
}

// Up runs all pending migrations.
func Up(databaseURL string) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func Down(databaseURL string) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// LatestVersion returns the highest version among the embedded migrations.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()
	return latestVersion(src)
}

func newMigrate(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	latest := version
	for {
		next, err := src.Next(latest)
		if err != nil {
			// os.ErrNotExist marks the end of the chain
			break
		}
		latest = next
	}
	return latest, nil
}
