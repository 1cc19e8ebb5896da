package db

import "embed"

// EmbedMigrations holds the goose migrations of the preset metastore.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
