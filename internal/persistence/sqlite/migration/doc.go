// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are read from an fs.FS (normally an embed.FS) and must be named
// {version}_{description}.sql, for example "001_initial_schema.sql". Each file runs in
// its own transaction and is recorded, with its checksum, in schema_migrations.
package migration
