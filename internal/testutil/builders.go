package testutil

import "github.com/tablescout/tablescout/internal/schema"

// PatientTable builds the canonical test fixture table
func PatientTable() schema.TableSchema {
	return schema.TableSchema{
		TableName:   "core__patient",
		Description: "One row per patient",
		Columns: []schema.Column{
			{Name: "id", Type: "TEXT", Description: "Patient identifier"},
			{Name: "state", Type: "TEXT", Description: "State of residence"},
		},
	}
}

// ConditionTable builds a second fixture table
func ConditionTable() schema.TableSchema {
	return schema.TableSchema{
		TableName:   "core__condition",
		Description: "Patient conditions",
		Columns: []schema.Column{
			{Name: "id", Type: "TEXT"},
			{Name: "patient_id", Type: "TEXT"},
			{Name: "code", Type: "TEXT", Description: "Condition code"},
		},
	}
}

// SmallCatalog builds a catalog with n generated tables
func SmallCatalog(n int) []schema.TableSchema {
	tables := make([]schema.TableSchema, 0, n)

	for i := range n {
		tables = append(tables, schema.TableSchema{
			TableName: "core__table_" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Columns:   []schema.Column{{Name: "id", Type: "TEXT"}},
		})
	}

	return tables
}
