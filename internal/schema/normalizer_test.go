package schema

import (
	"os"
	"path/filepath"
	"testing"
)

const shapeADoc = `version: 2
models:
  - name: core__patient
    description: One row per patient
    columns:
      - name: id
        type: TEXT
        description: Patient identifier
      - name: state
        data_type: TEXT
      - name: birth_date
`

const shapeBDoc = `core__condition:
  description: Patient conditions
  columns:
    - id
    - name: code
      type: TEXT
      description: Condition code
core__observation:
  columns:
    - id
`

func TestParseDocument_ShapeA(t *testing.T) {
	doc, err := ParseDocument([]byte(shapeADoc))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if doc.Kind != DocVersionedModels {
		t.Fatalf("expected versioned_models, got %s", doc.Kind)
	}

	if len(doc.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(doc.Models))
	}

	tables := TablesFromDocument(doc)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}

	table := tables[0]
	if table.TableName != "core__patient" {
		t.Errorf("expected table core__patient, got %s", table.TableName)
	}

	if len(table.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(table.Columns))
	}

	// Column order must match the source document
	expectedOrder := []string{"id", "state", "birth_date"}
	for i, name := range expectedOrder {
		if table.Columns[i].Name != name {
			t.Errorf("column %d: expected %s, got %s", i, name, table.Columns[i].Name)
		}
	}

	if table.Columns[1].Type != "TEXT" {
		t.Errorf("data_type should be accepted as a type key, got %q", table.Columns[1].Type)
	}

	if table.Columns[2].Type != "TEXT" {
		t.Errorf("missing type should default to TEXT, got %q", table.Columns[2].Type)
	}
}

func TestParseDocument_ShapeB(t *testing.T) {
	doc, err := ParseDocument([]byte(shapeBDoc))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if doc.Kind != DocKeyedMap {
		t.Fatalf("expected keyed_map, got %s", doc.Kind)
	}

	tables := TablesFromDocument(doc)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}

	if tables[0].TableName != "core__condition" || tables[1].TableName != "core__observation" {
		t.Errorf("tables out of document order: %s, %s", tables[0].TableName, tables[1].TableName)
	}

	// Bare string columns get TEXT type and empty description
	bare := tables[0].Columns[0]
	if bare.Name != "id" || bare.Type != "TEXT" || bare.Description != "" {
		t.Errorf("bare column not normalized: %+v", bare)
	}

	full := tables[0].Columns[1]
	if full.Name != "code" || full.Description != "Condition code" {
		t.Errorf("object column not normalized: %+v", full)
	}
}

func TestParseDocument_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "scalar", doc: `just a string`},
		{name: "list", doc: "- a\n- b\n"},
		{name: "mapping without columns", doc: "settings:\n  theme: dark\n"},
		{name: "empty", doc: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.doc))
			if err != nil {
				t.Fatalf("ParseDocument failed: %v", err)
			}

			if doc.Kind != DocUnrecognized {
				t.Errorf("expected unrecognized, got %s", doc.Kind)
			}

			if tables := TablesFromDocument(doc); len(tables) != 0 {
				t.Errorf("unrecognized document should yield zero tables, got %d", len(tables))
			}
		})
	}
}

func TestParseDocument_InvalidYAML(t *testing.T) {
	_, err := ParseDocument([]byte("core__patient:\n  columns: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}

	return path
}

func TestNormalizeFiles_LastWriteWins(t *testing.T) {
	dir := t.TempDir()

	first := writeTempFile(t, dir, "a.yml", `version: 2
models:
  - name: core__patient
    description: Old definition
    columns:
      - name: id
        type: TEXT
`)
	second := writeTempFile(t, dir, "b.yml", `version: 2
models:
  - name: core__patient
    description: New definition
    columns:
      - name: id
        type: TEXT
      - name: state
        type: TEXT
`)

	normalizer := NewNormalizer(nil)
	schemas := normalizer.NormalizeFiles([]string{first, second})

	if len(schemas) != 1 {
		t.Fatalf("duplicate names must collapse to one entry, got %d", len(schemas))
	}

	if schemas[0].Description != "New definition" {
		t.Errorf("later file should win, got %q", schemas[0].Description)
	}

	if len(schemas[0].Columns) != 2 {
		t.Errorf("later definition should replace columns, got %d", len(schemas[0].Columns))
	}
}

func TestNormalizeFiles_MalformedFileIsSkipped(t *testing.T) {
	dir := t.TempDir()

	bad := writeTempFile(t, dir, "bad.yml", "core__x:\n  columns: [unclosed")
	good := writeTempFile(t, dir, "good.yml", shapeADoc)

	normalizer := NewNormalizer(nil)
	schemas := normalizer.NormalizeFiles([]string{bad, good})

	if len(schemas) != 1 {
		t.Fatalf("expected the good file to survive, got %d schemas", len(schemas))
	}

	if schemas[0].TableName != "core__patient" {
		t.Errorf("unexpected table: %s", schemas[0].TableName)
	}
}

func TestNormalizeFiles_DocsEnrichment(t *testing.T) {
	dir := t.TempDir()

	path := writeTempFile(t, dir, "tables.yml", `core__patient:
  columns:
    - id
core__condition:
  description: Explicit wins
  columns:
    - id
`)

	docs := map[string]DocEntry{
		"core__patient":   {Content: "From documentation content"},
		"core__condition": {Description: "Doc-supplied description"},
	}

	normalizer := NewNormalizer(docs)
	schemas := normalizer.NormalizeFiles([]string{path})

	byName := make(map[string]TableSchema)
	for _, s := range schemas {
		byName[s.TableName] = s
	}

	if got := byName["core__patient"].Description; got != "From documentation content" {
		t.Errorf("content fallback not applied: %q", got)
	}

	if got := byName["core__condition"].Description; got != "Explicit wins" {
		t.Errorf("explicit description must take precedence: %q", got)
	}
}

func TestDiscoverSourceFiles(t *testing.T) {
	dir := t.TempDir()

	writeTempFile(t, dir, "b.yml", "")
	writeTempFile(t, dir, "a.yaml", "")
	writeTempFile(t, dir, "notes.txt", "")

	paths, err := DiscoverSourceFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverSourceFiles failed: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("expected 2 source files, got %d", len(paths))
	}

	if filepath.Base(paths[0]) != "a.yaml" || filepath.Base(paths[1]) != "b.yml" {
		t.Errorf("paths not sorted: %v", paths)
	}
}
