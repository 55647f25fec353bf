// Package handler contains the HTTP handlers for the query, course analytics,
// session and health endpoints.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coursemind/coursemind/internal/models"
	"github.com/rs/zerolog/log"
)

// RAGService is the query pipeline the handlers call (implemented by
// rag.System).
type RAGService interface {
	Query(ctx context.Context, query, sessionID string) (answer string, sources []models.Source, sid string, err error)
	NewSession(ctx context.Context) (string, error)
	Analytics(ctx context.Context) (models.CourseStats, error)
	AddCourseFolder(ctx context.Context, path string, clearExisting bool) (courses, chunks int, err error)
}

// QueryHandler handles POST /api/v1/query
type QueryHandler struct {
	rag            RAGService
	maxQueryLength int
}

func NewQueryHandler(rag RAGService, maxQueryLength int) *QueryHandler {
	return &QueryHandler{rag: rag, maxQueryLength: maxQueryLength}
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		models.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(req.Query) > h.maxQueryLength {
		models.WriteError(w, http.StatusBadRequest, "query exceeds maximum length")
		return
	}

	answer, sources, sessionID, err := h.rag.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("query failed")
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if sources == nil {
		sources = []models.Source{}
	}
	models.WriteJSON(w, http.StatusOK, models.QueryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}
