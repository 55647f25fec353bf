package handler

import (
	"net/http"

	"github.com/coursemind/coursemind/internal/models"
	"github.com/rs/zerolog/log"
)

// CoursesHandler handles GET /api/v1/courses
type CoursesHandler struct {
	rag RAGService
}

func NewCoursesHandler(rag RAGService) *CoursesHandler {
	return &CoursesHandler{rag: rag}
}

// Stats handles GET /api/v1/courses
func (h *CoursesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rag.Analytics(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("course analytics failed")
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	models.WriteJSON(w, http.StatusOK, stats)
}
