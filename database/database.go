package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Kind selects the migration set applied to a database.
type Kind string

const (
	// Server is the backend store: users, forms, templates, responses.
	Server Kind = "server"
	// Local is the on-device store: the offline queue and the session.
	Local Kind = "local"
)

// Open opens the SQLite3 file at path and brings it up to date.
func Open(path string, kind Kind) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "db.open")
	}

	// db tuning options
	switch kind {
	case Local:
		// single writer, keeps enqueue/flush strictly ordered
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(2 * time.Hour)
	}

	err = migrateDB(db, kind)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "db.migrate.%s", kind)
	}

	return db, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}
