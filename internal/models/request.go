package models

// QueryRequest for POST /api/v1/query
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// IngestRequest for POST /api/v1/ingest
type IngestRequest struct {
	Path          string `json:"path,omitempty"`
	ClearExisting bool   `json:"clear_existing"`
}
