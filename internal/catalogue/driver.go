package catalogue

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Registered database/sql driver names.
const (
	// DriverCgo is github.com/mattn/go-sqlite3.
	DriverCgo = "sqlite3"
	// DriverPure is modernc.org/sqlite.
	DriverPure = "sqlite"
)

// OpenDB opens the catalogue database and caps it at poolSize connections
// so that every connection can be owned by a Pool.
func OpenDB(driver, path string, poolSize int) (*sql.DB, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	dsn, err := dataSourceName(driver, path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database %q: %w", driver, path, err)
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database %q: %w", driver, path, err)
	}
	return db, nil
}

func dataSourceName(driver, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty database path")
	}
	// each connection to :memory: is a separate database
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	switch driver {
	case DriverCgo:
		return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", nil
	case DriverPure:
		return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}
