// Package schemas embeds the JSON schemas for scenario files and observer
// messages so binaries validate without a checkout on disk.
package schemas

import "embed"

//go:embed *.schema.json
var FS embed.FS
