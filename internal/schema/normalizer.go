package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
)

// shapeADocument mirrors the versioned model-list layout: a format-version
// marker plus a list of model entries.
type shapeADocument struct {
	Version int          `yaml:"version"`
	Models  []ModelEntry `yaml:"models"`
}

// shapeBEntry is the value side of a keyed-map document.
type shapeBEntry struct {
	Description string         `yaml:"description"`
	Columns     []shapeBColumn `yaml:"columns"`
}

// shapeBColumn accepts either a bare column name or a full column object.
type shapeBColumn struct {
	entry ColumnEntry
}

func (c *shapeBColumn) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.entry = ColumnEntry{Name: node.Value}
		return nil
	case yaml.MappingNode:
		return node.Decode(&c.entry)
	default:
		return fmt.Errorf("column must be a name or a mapping, got yaml kind %d", node.Kind)
	}
}

// ParseDocument classifies one source document into its tagged variant.
// Shape A is attempted first; on structural mismatch Shape B is attempted;
// anything else is Unrecognized. A YAML syntax error is returned to the
// caller, which treats it as a per-file parse failure.
func ParseDocument(data []byte) (ParsedDocument, error) {
	var docA shapeADocument
	if err := yaml.Unmarshal(data, &docA); err == nil {
		if docA.Version != 0 && len(docA.Models) > 0 {
			return ParsedDocument{Kind: DocVersionedModels, Models: docA.Models}, nil
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return ParsedDocument{}, fmt.Errorf("invalid yaml: %w", err)
	}

	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return ParsedDocument{Kind: DocUnrecognized}, nil
	}

	doc := root.Content[0]

	var tables []KeyedTable

	// Mapping nodes interleave key and value nodes.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode := doc.Content[i]
		valNode := doc.Content[i+1]

		if keyNode.Kind != yaml.ScalarNode || valNode.Kind != yaml.MappingNode {
			continue
		}

		var entry shapeBEntry
		if err := valNode.Decode(&entry); err != nil {
			continue
		}

		if len(entry.Columns) == 0 {
			continue
		}

		columns := make([]ColumnEntry, 0, len(entry.Columns))
		for _, col := range entry.Columns {
			columns = append(columns, col.entry)
		}

		tables = append(tables, KeyedTable{
			Name:        keyNode.Value,
			Description: entry.Description,
			Columns:     columns,
		})
	}

	if len(tables) == 0 {
		return ParsedDocument{Kind: DocUnrecognized}, nil
	}

	return ParsedDocument{Kind: DocKeyedMap, Tables: tables}, nil
}

// TablesFromDocument converts a parsed document into canonical table records.
// Unrecognized documents yield zero records.
func TablesFromDocument(doc ParsedDocument) []TableSchema {
	switch doc.Kind {
	case DocVersionedModels:
		tables := make([]TableSchema, 0, len(doc.Models))

		for _, model := range doc.Models {
			if model.Name == "" || len(model.Columns) == 0 {
				continue
			}

			tables = append(tables, TableSchema{
				TableName:   model.Name,
				Description: model.Description,
				Columns:     normalizeColumns(model.Columns),
			})
		}

		return tables
	case DocKeyedMap:
		tables := make([]TableSchema, 0, len(doc.Tables))

		for _, table := range doc.Tables {
			if table.Name == "" {
				continue
			}

			tables = append(tables, TableSchema{
				TableName:   table.Name,
				Description: table.Description,
				Columns:     normalizeColumns(table.Columns),
			})
		}

		return tables
	default:
		return nil
	}
}

// normalizeColumns resolves the declared type for every raw column entry
func normalizeColumns(entries []ColumnEntry) []Column {
	columns := make([]Column, 0, len(entries))

	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}

		columns = append(columns, Column{
			Name:        entry.Name,
			Type:        entry.DeclaredType(),
			Description: entry.Description,
		})
	}

	return columns
}

// Normalizer turns raw source files into the canonical catalog.
type Normalizer struct {
	docs map[string]DocEntry
}

// NewNormalizer creates a normalizer with an optional documentation map used
// to enrich table descriptions.
func NewNormalizer(docs map[string]DocEntry) *Normalizer {
	return &Normalizer{docs: docs}
}

// NormalizeFiles parses every source file and assembles the catalog. A file
// that fails to parse is logged and skipped; normalization of the remaining
// files continues. Duplicate table names take the later definition while
// keeping the position of the first appearance.
func (n *Normalizer) NormalizeFiles(paths []string) []TableSchema {
	var ordered []string

	byName := make(map[string]TableSchema)

	for _, path := range paths {
		tables, err := n.normalizeFile(path)
		if err != nil {
			parseErr := errors.Wrapf(err, errors.ErrTypeSourceParse, "skipping source file %s", path)
			logging.Warn(parseErr.Error())

			continue
		}

		for _, table := range tables {
			if _, seen := byName[table.TableName]; !seen {
				ordered = append(ordered, table.TableName)
			}

			byName[table.TableName] = table
		}
	}

	schemas := make([]TableSchema, 0, len(ordered))
	for _, name := range ordered {
		schemas = append(schemas, n.enrich(byName[name]))
	}

	return schemas
}

// normalizeFile reads and converts one source file
func (n *Normalizer) normalizeFile(path string) ([]TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	if doc.Kind == DocUnrecognized {
		logging.Debugf("source file %s matched no recognized shape", path)
	}

	return TablesFromDocument(doc), nil
}

// enrich applies the documentation override precedence: explicit description,
// then docs description, then docs content, then empty.
func (n *Normalizer) enrich(table TableSchema) TableSchema {
	if table.Description != "" {
		return table
	}

	doc, ok := n.docs[table.TableName]
	if !ok {
		return table
	}

	if doc.Description != "" {
		table.Description = doc.Description
	} else {
		table.Description = doc.Content
	}

	return table
}

// DiscoverSourceFiles lists the schema documents under a directory, sorted so
// later files deterministically win on duplicate table names.
func DiscoverSourceFiles(dir string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml", ".json":
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSourceFetch, "failed to list source files in %s", dir)
	}

	sort.Strings(paths)

	return paths, nil
}
