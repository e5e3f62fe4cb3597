// Package migrations holds the SQLite schema. Files are named
// NNN_name.up.sql and applied in version order; the matching .down.sql
// files document how to revert and are not run by the store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
