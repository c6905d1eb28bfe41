// Package migrations embeds the owner-record schema for each supported
// database dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Directories inside Migrations, per dialect.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
