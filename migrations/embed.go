// Package migrations embeds the goose migrations for the penpost schema.
// The SQL is written to run unchanged on both SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
