// Package migrations embeds the ordered SQL migration set.
package migrations

import "embed"

// FS holds every NNNNNN_title.{up,down}.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
