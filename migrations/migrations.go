// Package migrations ships the SQL schema with the binaries.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
