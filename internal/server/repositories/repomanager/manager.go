// Package repomanager vends repository implementations for the configured
// storage backend and runs schema migrations and transactions against it.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authservice/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/users"
)

// Repositories is a set of repositories sharing one connection scope,
// either the whole pool or a single transaction.
type Repositories interface {
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
}

type RepositoryManager interface {
	Repositories

	// RunMigrations brings the schema (tables or indexes) up to date.
	RunMigrations(ctx context.Context) error

	// WithTx runs fn with repositories bound to one transaction. It
	// commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
