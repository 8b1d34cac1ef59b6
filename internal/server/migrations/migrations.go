// Package migrations embeds the goose SQL migrations for every relational
// dialect. Each dialect lives in its own directory of the embedded FS.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
