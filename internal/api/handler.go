// Package api exposes the question-answering pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/pipeline"
	"github.com/tablescout/tablescout/internal/schema"
)

// Answerer runs the question-to-answer pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (*pipeline.QueryResponse, error)
}

// CatalogReader loads the normalized schema catalog.
type CatalogReader func() (*schema.Catalog, error)

// Dependencies carries the collaborators the HTTP surface needs.
type Dependencies struct {
	Pipeline Answerer
	Catalog  CatalogReader
}

type queryRequest struct {
	Question string `json:"question"`
}

// NewHandler builds the route table with middleware applied.
func NewHandler(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})

	mux.HandleFunc("GET /tables", func(w http.ResponseWriter, r *http.Request) {
		handleListTables(deps, w, r)
	})

	var handler http.Handler = mux
	handler = MetricsMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	handler = RequestIDMiddleware(handler)

	return handler
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req queryRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: expected {\"question\": string}")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}

	resp, err := deps.Pipeline.Answer(r.Context(), req.Question)
	if err != nil {
		status := statusForError(err)

		logging.WithError(err).WithFields(map[string]interface{}{
			"status":     status,
			"request_id": RequestIDFromContext(r.Context()),
		}).Warn("Query failed")

		writeError(w, status, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func handleListTables(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	if deps.Catalog == nil {
		writeError(w, http.StatusNotFound, "no catalog configured")
		return
	}

	catalog, err := deps.Catalog()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, catalog)
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeSqlRejected:
		return http.StatusBadRequest
	case errors.ErrTypeEmptyRetrieval:
		return http.StatusNotFound
	case errors.ErrTypeEmbeddingGateway, errors.ErrTypeAuthoringGateway, errors.ErrTypeVectorStore:
		return http.StatusBadGateway
	case errors.ErrTypeExecution, errors.ErrTypeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
