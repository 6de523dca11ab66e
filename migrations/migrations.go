// Package migrations embeds the cache schema migrations for goose.
//
// Migration files follow the naming convention: YYYYMMDDHHMMSS_description.sql
// They are applied in order when a cache store is opened.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
