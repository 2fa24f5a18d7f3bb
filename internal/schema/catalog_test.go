package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablescout/tablescout/internal/errors"
)

func TestWriteReadCatalog_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	schemas := []TableSchema{
		{
			TableName:   "core__patient",
			Description: "One row per patient",
			Columns: []Column{
				{Name: "id", Type: "TEXT"},
				{Name: "state", Type: "TEXT"},
			},
		},
		{TableName: "core__condition", Columns: []Column{{Name: "id", Type: "TEXT"}}},
	}

	written, err := WriteCatalog(path, schemas)
	require.NoError(t, err)
	assert.Equal(t, 2, written.TotalTables)
	assert.False(t, written.Timestamp.IsZero())

	read, err := ReadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, written.TotalTables, read.TotalTables)
	assert.Equal(t, schemas, read.Schemas)
}

func TestReadCatalog_Missing(t *testing.T) {
	_, err := ReadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeStorage))
}

func TestCatalog_Lookup(t *testing.T) {
	catalog := &Catalog{
		Schemas: []TableSchema{
			{TableName: "core__patient"},
			{TableName: "core__condition"},
		},
	}

	table, ok := catalog.Lookup("core__condition")
	assert.True(t, ok)
	assert.Equal(t, "core__condition", table.TableName)

	_, ok = catalog.Lookup("core__medication")
	assert.False(t, ok)
}
