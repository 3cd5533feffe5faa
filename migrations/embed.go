// Package migrations embeds the SQL migrations of the SQLite buffer.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
