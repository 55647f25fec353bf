package models

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// QueryResponse is returned by POST /api/v1/query
type QueryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}

// CourseStats is returned by GET /api/v1/courses
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// NewSessionResponse is returned by POST /api/v1/sessions
type NewSessionResponse struct {
	SessionID string `json:"session_id"`
}

// IngestResponse is returned by POST /api/v1/ingest
type IngestResponse struct {
	CoursesAdded int `json:"courses_added"`
	ChunksAdded  int `json:"chunks_added"`
}
