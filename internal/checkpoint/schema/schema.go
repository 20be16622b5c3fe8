// Package schema embeds the JSON Schema for checkpoint records.
package schema

import "embed"

// FS holds record.schema.json.
//
//go:embed record.schema.json
var FS embed.FS

// RecordFile is the name of the record schema inside FS.
const RecordFile = "record.schema.json"
