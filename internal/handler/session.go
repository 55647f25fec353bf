package handler

import (
	"encoding/json"
	"net/http"

	"github.com/coursemind/coursemind/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionHandler handles POST /api/v1/sessions
type SessionHandler struct {
	rag RAGService
}

func NewSessionHandler(rag RAGService) *SessionHandler {
	return &SessionHandler{rag: rag}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.rag.NewSession(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("session creation failed")
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, models.NewSessionResponse{SessionID: id})
}

// IngestHandler handles POST /api/v1/ingest
type IngestHandler struct {
	rag      RAGService
	docsPath string
}

func NewIngestHandler(rag RAGService, docsPath string) *IngestHandler {
	return &IngestHandler{rag: rag, docsPath: docsPath}
}

// Ingest handles POST /api/v1/ingest. Path defaults to the configured docs
// folder.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	path := req.Path
	if path == "" {
		path = h.docsPath
	}

	courses, chunks, err := h.rag.AddCourseFolder(r.Context(), path, req.ClearExisting)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("ingestion failed")
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, models.IngestResponse{
		CoursesAdded: courses,
		ChunksAdded:  chunks,
	})
}
