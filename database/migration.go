package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/log"
)

// one directory per Kind
//
//go:embed migrations
var dbMigrations embed.FS

type migrateLogger Kind

func (l migrateLogger) Printf(format string, v ...any) {
	log.Debugf("db.migrate.%s: %s", string(l), strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}

func (migrateLogger) Verbose() bool {
	return false
}

func migrateDB(db *sql.DB, kind Kind) error {
	src, err := iofs.New(dbMigrations, "migrations/"+string(kind))
	if err != nil {
		return errors.Wrap(err, "source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return errors.Wrap(err, "driver")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return err
	}
	migrator.Log = migrateLogger(kind)

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		// db already up to date
	case err != nil:
		return err
	default:
		version, _, _ := migrator.Version()
		log.Infof("db.migrate.%s: schema at version %d", kind, version)
	}
	return nil
}
