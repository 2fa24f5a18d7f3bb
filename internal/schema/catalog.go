package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tablescout/tablescout/internal/errors"
)

// WriteCatalog persists the normalized catalog as a JSON document. Writing a
// new catalog is the only way to pick up upstream schema changes.
func WriteCatalog(path string, schemas []TableSchema) (*Catalog, error) {
	catalog := &Catalog{
		Timestamp:   time.Now().UTC(),
		TotalTables: len(schemas),
		Schemas:     schemas,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to create catalog directory for %s", path)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to marshal catalog")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to write catalog file %s", path)
	}

	return catalog, nil
}

// ReadCatalog loads a previously persisted catalog file
func ReadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to read catalog file %s", path).
			WithSuggestion("Run 'tablescout sync' to generate the catalog")
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "catalog file %s is not valid JSON", path)
	}

	return &catalog, nil
}

// Lookup returns the schema for a table name, if present
func (c *Catalog) Lookup(name string) (TableSchema, bool) {
	for _, table := range c.Schemas {
		if table.TableName == name {
			return table, true
		}
	}

	return TableSchema{}, false
}
