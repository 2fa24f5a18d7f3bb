package schema

import "time"

// Column describes a single column of a source table. Type is free-form and
// mirrors whatever the source schema declared.
type Column struct {
	Name        string `json:"name"        yaml:"name"`
	Type        string `json:"type"        yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// TableSchema is the canonical record for one table. TableName is the unique
// id across the catalog; records are created once during normalization and
// immutable afterwards.
type TableSchema struct {
	TableName   string   `json:"table_name"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
}

// Catalog is the persisted set of normalized table schemas.
type Catalog struct {
	Timestamp   time.Time     `json:"timestamp"`
	TotalTables int           `json:"total_tables"`
	Schemas     []TableSchema `json:"schemas"`
}

// DocumentKind tags the recognized source document variants.
type DocumentKind int

const (
	DocUnrecognized DocumentKind = iota
	DocVersionedModels
	DocKeyedMap
)

// String returns a human-readable name for the document kind
func (k DocumentKind) String() string {
	switch k {
	case DocVersionedModels:
		return "versioned_models"
	case DocKeyedMap:
		return "keyed_map"
	default:
		return "unrecognized"
	}
}

// ParsedDocument is the outcome of parsing one source file. Exactly one
// variant is populated, selected by Kind.
type ParsedDocument struct {
	Kind   DocumentKind
	Models []ModelEntry // DocVersionedModels
	Tables []KeyedTable // DocKeyedMap, in document order
}

// ModelEntry is one model from a versioned model-list document.
type ModelEntry struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Columns     []ColumnEntry `yaml:"columns"`
}

// ColumnEntry is a raw column as declared in a source document. The declared
// type may appear under either "type" or "data_type".
type ColumnEntry struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	DataType    string `yaml:"data_type"`
	Description string `yaml:"description"`
}

// DeclaredType resolves the two synonymous type keys, defaulting to TEXT
func (c ColumnEntry) DeclaredType() string {
	if c.Type != "" {
		return c.Type
	}

	if c.DataType != "" {
		return c.DataType
	}

	return "TEXT"
}

// KeyedTable is one entry from a keyed-map document.
type KeyedTable struct {
	Name        string
	Description string
	Columns     []ColumnEntry
}
