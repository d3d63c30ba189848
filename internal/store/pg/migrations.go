package pg

import "embed"

// Migrations holds the embedded schema migrations, applied at startup
// via db.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
