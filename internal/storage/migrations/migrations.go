// Package migrations embeds the goose migration scripts for the tables this
// codebase owns.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
