package schema

import (
	"fmt"
	"strings"
)

// noDescription is the placeholder rendered for columns without one
const noDescription = "No description"

// Encode renders a table schema as the text blob that gets embedded. The
// layout is fixed: table name, description, a Columns: header, one line per
// column. Output is deterministic so embeddings stay comparable across runs.
func Encode(table TableSchema) string {
	var sb strings.Builder

	sb.WriteString(table.TableName)
	sb.WriteString("\n")
	sb.WriteString(table.Description)
	sb.WriteString("\n")
	sb.WriteString("Columns:\n")

	for _, column := range table.Columns {
		description := column.Description
		if description == "" {
			description = noDescription
		}

		sb.WriteString(fmt.Sprintf("  - %s (%s): %s\n", column.Name, column.Type, description))
	}

	return sb.String()
}
