// Package migrations embeds the goose SQL schema so binaries can migrate
// without shipping files alongside them.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir is the directory goose reads inside FS.
const Dir = "."
