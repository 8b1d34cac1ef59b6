package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/authservice/internal/dbx"
	"github.com/dmitrijs2005/authservice/internal/server/migrations"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/users"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// SQLRepositoryManager serves the relational backends. The dialect decides
// which migrations run and which repository implementations are built.
type SQLRepositoryManager struct {
	db            *sql.DB
	dialect       string
	migrationsDir string
	users         func(dbx.DBTX) users.Repository
	refreshTokens func(dbx.DBTX) refreshtokens.Repository
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed manager over db
// (opened with the pgx stdlib driver).
func NewPostgresRepositoryManager(db *sql.DB) *SQLRepositoryManager {
	return &SQLRepositoryManager{
		db:            db,
		dialect:       "pgx",
		migrationsDir: migrations.PostgresDir,
		users:         func(tx dbx.DBTX) users.Repository { return users.NewPostgresRepository(tx) },
		refreshTokens: func(tx dbx.DBTX) refreshtokens.Repository { return refreshtokens.NewPostgresRepository(tx) },
	}
}

// NewSQLiteRepositoryManager constructs a SQLite-backed manager over db
// (opened with the modernc driver).
func NewSQLiteRepositoryManager(db *sql.DB) *SQLRepositoryManager {
	return &SQLRepositoryManager{
		db:            db,
		dialect:       "sqlite3",
		migrationsDir: migrations.SQLiteDir,
		users:         func(tx dbx.DBTX) users.Repository { return users.NewSQLiteRepository(tx) },
		refreshTokens: func(tx dbx.DBTX) refreshtokens.Repository { return refreshtokens.NewSQLiteRepository(tx) },
	}
}

// Users returns a users.Repository bound to the pool.
func (m *SQLRepositoryManager) Users() users.Repository {
	return m.users(m.db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the pool.
func (m *SQLRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens(m.db)
}

// RunMigrations sets up goose with the embedded migrations of this dialect
// and applies them.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, m.migrationsDir); err != nil {
		return fmt.Errorf("migrate %s: %w", m.dialect, err)
	}
	return nil
}

func (m *SQLRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, txRepositories{users: m.users(tx), refreshTokens: m.refreshTokens(tx)})
	})
}

func (m *SQLRepositoryManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *SQLRepositoryManager) Close(context.Context) error {
	return m.db.Close()
}

type txRepositories struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

func (r txRepositories) Users() users.Repository                 { return r.users }
func (r txRepositories) RefreshTokens() refreshtokens.Repository { return r.refreshTokens }
