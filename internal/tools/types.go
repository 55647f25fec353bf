// Package tools defines the tool capability contract the model can invoke
// mid-conversation, the name-keyed registry that dispatches invocations, and
// the course search/outline tool implementations.
package tools

import (
	"context"

	"github.com/coursemind/coursemind/internal/models"
)

// Definition is the declarative schema sent to the model for one tool.
// InputSchema is a full JSON-schema object ("type", "properties", "required").
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Tool is a named capability the model may invoke. Execute returns the result
// text shown to the model plus the citation records backing it. Expected
// "not found" conditions are reported as descriptive text with a nil error;
// an error return means an unexpected backend failure and is fatal to the
// query's orchestration.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, input map[string]interface{}) (string, []models.Source, error)
}

// CourseStore is the retrieval backend the tools query. Implemented by
// service.CourseStore; narrowed here so tools are testable with fakes.
type CourseStore interface {
	// Search runs a relevance query over course content. courseTitle and
	// lessonNumber are optional filters; courseTitle must already be the
	// canonical title. limit <= 0 uses the store's configured maximum.
	Search(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) (models.SearchResults, error)

	// ResolveCourseName fuzzy-matches a partial course name to the canonical
	// stored title. Returns "" when nothing matches.
	ResolveCourseName(ctx context.Context, name string) (string, error)

	// CourseLink and LessonLink return deep links, or "" when unknown.
	CourseLink(ctx context.Context, courseTitle string) (string, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)

	// CourseOutline returns the structure of a course by canonical title.
	CourseOutline(ctx context.Context, courseTitle string) (models.CourseOutline, error)
}
