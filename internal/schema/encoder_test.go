package schema

import (
	"strings"
	"testing"
)

func TestEncode_Layout(t *testing.T) {
	table := TableSchema{
		TableName:   "core__patient",
		Description: "One row per patient",
		Columns: []Column{
			{Name: "id", Type: "TEXT", Description: "Patient identifier"},
			{Name: "state", Type: "TEXT"},
		},
	}

	expected := "core__patient\n" +
		"One row per patient\n" +
		"Columns:\n" +
		"  - id (TEXT): Patient identifier\n" +
		"  - state (TEXT): No description\n"

	if got := Encode(table); got != expected {
		t.Errorf("Encode() = %q, want %q", got, expected)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	table := TableSchema{
		TableName:   "core__condition",
		Description: "Patient conditions",
		Columns: []Column{
			{Name: "id", Type: "TEXT"},
			{Name: "code", Type: "TEXT", Description: "Condition code"},
			{Name: "onset", Type: "DATE"},
		},
	}

	first := Encode(table)

	for range 10 {
		if got := Encode(table); got != first {
			t.Fatal("Encode is not deterministic")
		}
	}
}

func TestEncode_EmptyDescription(t *testing.T) {
	table := TableSchema{TableName: "core__empty"}

	encoded := Encode(table)

	if !strings.HasPrefix(encoded, "core__empty\n\nColumns:\n") {
		t.Errorf("unexpected layout for empty description: %q", encoded)
	}
}

func TestEncode_ColumnOrderPreserved(t *testing.T) {
	table := TableSchema{
		TableName: "core__ordering",
		Columns: []Column{
			{Name: "zeta", Type: "TEXT"},
			{Name: "alpha", Type: "TEXT"},
		},
	}

	encoded := Encode(table)

	if strings.Index(encoded, "zeta") > strings.Index(encoded, "alpha") {
		t.Error("columns must be rendered in catalog order, not sorted")
	}
}
