package postgres

import "embed"

// Migrations holds the embedded schema migrations for the verification store.
// Applied at startup via db/migrator.
//
//go:embed migrations/*.sql
var Migrations embed.FS
