package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Direction selects which way Migrate walks the schema history.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationResult is the schema state after Migrate.
type MigrationResult struct {
	Changed bool
	Version uint
	Dirty   bool
}

// Migrate applies the migrations at source (a golang-migrate URL such as
// file://migrations) to the database at dsn. steps of zero means all.
//
// Postcondition: ErrNoChange is folded into a result with Changed false.
func Migrate(source, dsn string, dir Direction, steps int) (MigrationResult, error) {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case dir == Up && steps > 0:
		err = m.Steps(steps)
	case dir == Up:
		err = m.Up()
	case dir == Down && steps > 0:
		err = m.Steps(-steps)
	case dir == Down:
		err = m.Down()
	default:
		return MigrationResult{}, fmt.Errorf("invalid migration direction %q", dir)
	}

	res := MigrationResult{Changed: !errors.Is(err, migrate.ErrNoChange)}
	if err != nil && res.Changed {
		return res, fmt.Errorf("migrating %s: %w", dir, err)
	}
	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return res, fmt.Errorf("reading schema version: %w", verr)
	}
	res.Version, res.Dirty = version, dirty
	return res, nil
}
