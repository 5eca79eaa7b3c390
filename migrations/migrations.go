// Package migrations holds the schema of the tables the module reads and
// writes when it runs against its own database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
