package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
)

func testClient(t *testing.T, control, data string) *Client {
	t.Helper()

	// Data-plane tests only stand up one server; NewClient still requires a
	// control-plane URL, so reuse the data URL for it.
	if control == "" {
		control = data
	}

	client, err := NewClient(config.VectorStoreConfig{
		APIKey:         "test-key",
		ControlBaseURL: control,
		IndexBaseURL:   data,
		IndexName:      "tablescout-schemas",
		Dimensions:     3,
		Metric:         "cosine",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	return client
}

func TestClient_IndexExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Api-Key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}

		switch r.URL.Path {
		case "/indexes/tablescout-schemas":
			_ = json.NewEncoder(w).Encode(describeIndexResponse{Name: "tablescout-schemas"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL, "")

	exists, err := client.IndexExists(context.Background())
	if err != nil {
		t.Fatalf("IndexExists failed: %v", err)
	}

	if !exists {
		t.Error("expected index to exist")
	}
}

func TestClient_IndexExists_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL, "")

	exists, err := client.IndexExists(context.Background())
	if err != nil {
		t.Fatalf("IndexExists failed: %v", err)
	}

	if exists {
		t.Error("expected index to be missing")
	}
}

func TestClient_CreateIndex_WaitsForReady(t *testing.T) {
	var describes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/indexes":
			var req createIndexRequest
			_ = json.NewDecoder(r.Body).Decode(&req)

			if req.Dimension != 3 || req.Metric != "cosine" {
				t.Errorf("unexpected create request: %+v", req)
			}

			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodGet && r.URL.Path == "/indexes/tablescout-schemas":
			resp := describeIndexResponse{Name: "tablescout-schemas"}
			// Ready on the second poll
			resp.Status.Ready = describes.Add(1) >= 2
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.CreateIndex(ctx, 3, "cosine"); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	if describes.Load() < 2 {
		t.Errorf("expected at least 2 readiness polls, got %d", describes.Load())
	}
}

func TestClient_Upsert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req upsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode upsert: %v", err)
		}

		_ = json.NewEncoder(w).Encode(upsertResponse{UpsertedCount: len(req.Vectors)})
	}))
	defer server.Close()

	client := testClient(t, "", server.URL)

	records := []Record{
		{ID: "core__patient", Values: []float32{0.1, 0.2, 0.3}, Metadata: map[string]string{"table_name": "core__patient"}},
		{ID: "core__condition", Values: []float32{0.4, 0.5, 0.6}},
	}

	if err := client.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
}

func TestClient_Upsert_PartialWriteIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(upsertResponse{UpsertedCount: 1})
	}))
	defer server.Close()

	client := testClient(t, "", server.URL)

	records := []Record{
		{ID: "a", Values: []float32{1}},
		{ID: "b", Values: []float32{2}},
	}

	err := client.Upsert(context.Background(), records)
	if err == nil {
		t.Fatal("expected error when fewer records were written")
	}

	if !errors.IsType(err, errors.ErrTypeVectorStore) {
		t.Errorf("expected vector_store error, got %v", errors.GetType(err))
	}
}

func TestClient_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode query: %v", err)
		}

		if req.TopK != 2 || !req.IncludeMetadata {
			t.Errorf("unexpected query request: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(queryResponse{Matches: []Match{
			{ID: "core__patient", Score: 0.91},
			{ID: "core__condition", Score: 0.72},
		}})
	}))
	defer server.Close()

	client := testClient(t, "", server.URL)

	matches, err := client.Query(context.Background(), []float32{0.1, 0.2, 0.3}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	if matches[0].Score < matches[1].Score {
		t.Error("matches should be ranked by descending score")
	}
}

func TestClient_DescribeIndexStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe_index_stats" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(IndexStats{TotalVectorCount: 42, Dimension: 3})
	}))
	defer server.Close()

	client := testClient(t, "", server.URL)

	stats, err := client.DescribeIndexStats(context.Background())
	if err != nil {
		t.Fatalf("DescribeIndexStats failed: %v", err)
	}

	if stats.TotalVectorCount != 42 {
		t.Errorf("expected 42 records, got %d", stats.TotalVectorCount)
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(config.VectorStoreConfig{ControlBaseURL: "http://localhost"})
	if err == nil {
		t.Error("expected error for missing index name")
	}
}
