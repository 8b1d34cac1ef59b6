package repomanager

import (
	"database/sql"
	"fmt"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Open connects to the backend named by driver. For mongo, dsn is the
// connection URI and database the database name; database is ignored
// otherwise. The connection is lazy: call Ping to verify it.
func Open(driver, dsn, database string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return NewPostgresRepositoryManager(db), nil
	case DriverSQLite:
		db, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection: SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
		return NewSQLiteRepositoryManager(db), nil
	case DriverMongo:
		client, err := connectMongo(dsn)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return NewMongoRepositoryManager(client, database), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// sqliteDSN turns on foreign key enforcement unless dsn already sets it.
// SQLite leaves it off per connection by default.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
