// Package migrations carries the schema as goose SQL files compiled into the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
