// Package migrations embeds SQLite schema migrations for warp storage.
package migrations

import "embed"

// FS contains embedded SQLite migrations for warp storage.
//
//go:embed *.sql
var FS embed.FS
