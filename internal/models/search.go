package models

// ChunkMetadata describes where a retrieved chunk came from.
type ChunkMetadata struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults holds the documents, metadata and relevance scores returned
// by the retrieval backend. Documents, Metadata and Scores are index-aligned.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMetadata
	Scores    []float64
}

// IsEmpty reports whether the search matched no chunks.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}
