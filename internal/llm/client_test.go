package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/schema"
)

var patientSchema = []schema.TableSchema{
	{
		TableName:   "core__patient",
		Description: "One row per patient",
		Columns: []schema.Column{
			{Name: "id", Type: "TEXT"},
			{Name: "state", Type: "TEXT"},
		},
	},
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AuthoringConfig
		wantErr bool
	}{
		{
			name:    "openai requires api key",
			cfg:     config.AuthoringConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name:    "missing model",
			cfg:     config.AuthoringConfig{Provider: ProviderOllama},
			wantErr: true,
		},
		{
			name:    "unsupported provider",
			cfg:     config.AuthoringConfig{Provider: "bard", Model: "m"},
			wantErr: true,
		},
		{
			name:    "ollama needs no key",
			cfg:     config.AuthoringConfig{Provider: ProviderOllama, Model: "llama3"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateSQL_OpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		prompt := req.Messages[0].Content
		if !strings.Contains(prompt, "core__patient") || !strings.Contains(prompt, "How many patients") {
			t.Error("prompt must contain the schemas and the question")
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "```sql\nSELECT COUNT(*) FROM core__patient WHERE state = 'CA'\n```"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(config.AuthoringConfig{
		Provider: ProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	sql, err := client.GenerateSQL(context.Background(), "How many patients from California?", patientSchema)
	if err != nil {
		t.Fatalf("GenerateSQL failed: %v", err)
	}

	if sql != "SELECT COUNT(*) FROM core__patient WHERE state = 'CA'" {
		t.Errorf("markdown fence not stripped: %q", sql)
	}
}

func TestGenerateSQL_Anthropic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("missing x-api-key header, got %q", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "SELECT id FROM core__patient"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(config.AuthoringConfig{
		Provider: ProviderAnthropic,
		Model:    "claude-sonnet-4-5",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	sql, err := client.GenerateSQL(context.Background(), "List patient ids", patientSchema)
	if err != nil {
		t.Fatalf("GenerateSQL failed: %v", err)
	}

	if sql != "SELECT id FROM core__patient" {
		t.Errorf("unexpected sql: %q", sql)
	}
}

func TestGenerateSQL_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "   "})
	}))
	defer server.Close()

	client, err := NewClient(config.AuthoringConfig{
		Provider: ProviderOllama,
		Model:    "llama3",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.GenerateSQL(context.Background(), "question", patientSchema)
	if err == nil {
		t.Fatal("expected error for empty statement")
	}

	if !errors.IsType(err, errors.ErrTypeAuthoringGateway) {
		t.Errorf("expected authoring_gateway error, got %v", errors.GetType(err))
	}
}

func TestGenerateSQL_GatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(config.AuthoringConfig{
		Provider: ProviderOllama,
		Model:    "llama3",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.GenerateSQL(context.Background(), "question", patientSchema)
	if !errors.IsType(err, errors.ErrTypeAuthoringGateway) {
		t.Errorf("expected authoring_gateway error, got %v", err)
	}
}

func TestStripMarkdownSQL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "plain", raw: "SELECT 1", expected: "SELECT 1"},
		{name: "sql fence", raw: "```sql\nSELECT 1\n```", expected: "SELECT 1"},
		{name: "bare fence", raw: "```\nSELECT 1\n```", expected: "SELECT 1"},
		{name: "surrounding whitespace", raw: "  SELECT 1  ", expected: "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripMarkdownSQL(tt.raw); got != tt.expected {
				t.Errorf("stripMarkdownSQL(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}
