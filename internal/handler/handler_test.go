package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coursemind/coursemind/internal/models"
)

type stubRAG struct {
	answer    string
	sources   []models.Source
	sessionID string
	queryErr  error

	stats    models.CourseStats
	statsErr error

	newSessionID  string
	newSessionErr error

	courses    int
	chunks     int
	ingestErr  error
	ingestPath string
	ingestClr  bool

	lastQuery   string
	lastSession string
}

func (s *stubRAG) Query(ctx context.Context, query, sessionID string) (string, []models.Source, string, error) {
	s.lastQuery = query
	s.lastSession = sessionID
	return s.answer, s.sources, s.sessionID, s.queryErr
}

func (s *stubRAG) NewSession(ctx context.Context) (string, error) {
	return s.newSessionID, s.newSessionErr
}

func (s *stubRAG) Analytics(ctx context.Context) (models.CourseStats, error) {
	return s.stats, s.statsErr
}

func (s *stubRAG) AddCourseFolder(ctx context.Context, path string, clearExisting bool) (int, int, error) {
	s.ingestPath = path
	s.ingestClr = clearExisting
	return s.courses, s.chunks, s.ingestErr
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestQueryHandlerSuccess(t *testing.T) {
	rag := &stubRAG{
		answer:    "Lesson 1 covers embeddings.",
		sources:   []models.Source{{Name: "ML Basics - Lesson 1", Link: "https://example.com/1"}},
		sessionID: "sess-1",
	}
	h := NewQueryHandler(rag, 2000)

	rec := postJSON(t, h.Query, "/api/v1/query", `{"query":"what does lesson 1 cover?","session_id":"sess-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Lesson 1 covers embeddings." || resp.SessionID != "sess-1" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Link != "https://example.com/1" {
		t.Errorf("sources = %v", resp.Sources)
	}
	if rag.lastQuery != "what does lesson 1 cover?" || rag.lastSession != "sess-1" {
		t.Errorf("passed query=%q session=%q", rag.lastQuery, rag.lastSession)
	}
}

func TestQueryHandlerEmptyQuery(t *testing.T) {
	h := NewQueryHandler(&stubRAG{}, 2000)
	rec := postJSON(t, h.Query, "/api/v1/query", `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryHandlerInvalidJSON(t *testing.T) {
	h := NewQueryHandler(&stubRAG{}, 2000)
	rec := postJSON(t, h.Query, "/api/v1/query", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryHandlerQueryTooLong(t *testing.T) {
	h := NewQueryHandler(&stubRAG{}, 10)
	body, _ := json.Marshal(models.QueryRequest{Query: strings.Repeat("a", 11)})
	rec := postJSON(t, h.Query, "/api/v1/query", string(body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryHandlerPipelineError(t *testing.T) {
	h := NewQueryHandler(&stubRAG{queryErr: errors.New("model unavailable")}, 2000)
	rec := postJSON(t, h.Query, "/api/v1/query", `{"query":"q"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestQueryHandlerNilSourcesSerializeAsEmptyArray(t *testing.T) {
	h := NewQueryHandler(&stubRAG{answer: "direct answer", sessionID: "s"}, 2000)
	rec := postJSON(t, h.Query, "/api/v1/query", `{"query":"q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sources":[]`) {
		t.Errorf("sources must serialize as [], body = %s", rec.Body.String())
	}
}

func TestCoursesHandlerStats(t *testing.T) {
	h := NewCoursesHandler(&stubRAG{stats: models.CourseStats{
		TotalCourses: 2,
		CourseTitles: []string{"A", "B"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats models.CourseStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalCourses != 2 || len(stats.CourseTitles) != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCoursesHandlerEmptyCatalog(t *testing.T) {
	h := NewCoursesHandler(&stubRAG{stats: models.CourseStats{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if !strings.Contains(rec.Body.String(), `"course_titles":[]`) {
		t.Errorf("titles must serialize as [], body = %s", rec.Body.String())
	}
}

func TestCoursesHandlerError(t *testing.T) {
	h := NewCoursesHandler(&stubRAG{statsErr: errors.New("store down")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSessionHandlerCreate(t *testing.T) {
	h := NewSessionHandler(&stubRAG{newSessionID: "sess-new"})
	rec := postJSON(t, h.Create, "/api/v1/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.NewSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "sess-new" {
		t.Errorf("session_id = %q", resp.SessionID)
	}
}

func TestIngestHandlerDefaultsToDocsPath(t *testing.T) {
	rag := &stubRAG{courses: 3, chunks: 42}
	h := NewIngestHandler(rag, "./docs")

	rec := postJSON(t, h.Ingest, "/api/v1/ingest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rag.ingestPath != "./docs" {
		t.Errorf("path = %q, want default docs path", rag.ingestPath)
	}
	var resp models.IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CoursesAdded != 3 || resp.ChunksAdded != 42 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIngestHandlerExplicitPathAndClear(t *testing.T) {
	rag := &stubRAG{}
	h := NewIngestHandler(rag, "./docs")

	rec := postJSON(t, h.Ingest, "/api/v1/ingest", `{"path":"/data/courses","clear_existing":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rag.ingestPath != "/data/courses" || !rag.ingestClr {
		t.Errorf("path=%q clear=%v", rag.ingestPath, rag.ingestClr)
	}
}

func TestIngestHandlerError(t *testing.T) {
	h := NewIngestHandler(&stubRAG{ingestErr: errors.New("folder missing")}, "./docs")
	rec := postJSON(t, h.Ingest, "/api/v1/ingest", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type stubChecker struct{ err error }

func (c *stubChecker) TestConnection(ctx context.Context) error { return c.err }

func TestHealthHandlerAllHealthy(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"elasticsearch": &stubChecker{},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Checks["elasticsearch"] != "ok" || resp.Checks["server"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"elasticsearch": &stubChecker{err: errors.New("no route to host")},
		"postgres":      nil,
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q", resp.Status)
	}
	if !strings.HasPrefix(resp.Checks["elasticsearch"], "unavailable") {
		t.Errorf("elasticsearch = %q", resp.Checks["elasticsearch"])
	}
	if resp.Checks["postgres"] != "disabled" {
		t.Errorf("postgres = %q", resp.Checks["postgres"])
	}
}
