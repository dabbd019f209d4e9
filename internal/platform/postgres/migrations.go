package postgres

import "embed"

// MigrationTableName is the table goose uses to track applied migrations.
const MigrationTableName = "schema_migrations"

// MigrationsFS embeds the goose SQL migrations so the server binary can
// bring the schema up to date at startup without a separate migration step.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
