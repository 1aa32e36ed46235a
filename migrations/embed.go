// Package migrations carries the goose SQL migrations compiled into the
// server binary, so schema management needs no files on disk next to the
// executable.
package migrations

import "embed"

// FS holds the migration SQL files. Pass it to goose.SetBaseFS and run
// goose against the "." directory.
//
//go:embed *.sql
var FS embed.FS
