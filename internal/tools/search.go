package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemind/coursemind/internal/models"
	"github.com/rs/zerolog/log"
)

// SearchTool answers content questions by querying the course store. An
// optional course name is fuzzy-resolved to its canonical title before the
// search; an optional lesson number narrows the scope further.
type SearchTool struct {
	store CourseStore
}

func NewSearchTool(store CourseStore) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, input map[string]interface{}) (string, []models.Source, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return "", nil, fmt.Errorf("query parameter is required")
	}

	courseName, _ := input["course_name"].(string)
	var lessonNumber *int
	if n, ok := input["lesson_number"].(float64); ok {
		lesson := int(n)
		lessonNumber = &lesson
	}

	courseTitle := ""
	if courseName != "" {
		resolved, err := t.store.ResolveCourseName(ctx, courseName)
		if err != nil {
			return "", nil, fmt.Errorf("resolve course name: %w", err)
		}
		if resolved == "" {
			return fmt.Sprintf("No course found matching '%s'", courseName), nil, nil
		}
		courseTitle = resolved
	}

	results, err := t.store.Search(ctx, query, courseTitle, lessonNumber, 0)
	if err != nil {
		return "", nil, fmt.Errorf("search course content: %w", err)
	}
	if results.IsEmpty() {
		return emptyResultMessage(courseTitle, lessonNumber), nil, nil
	}

	return t.formatResults(ctx, results)
}

// emptyResultMessage scopes the "nothing found" text to the filters applied.
func emptyResultMessage(courseTitle string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseTitle != "" {
		msg += fmt.Sprintf(" in course '%s'", courseTitle)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// formatResults renders each chunk as a labeled block and records one source
// per chunk, preferring the lesson-level link when a lesson number is known.
func (t *SearchTool) formatResults(ctx context.Context, results models.SearchResults) (string, []models.Source, error) {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]models.Source, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		header := meta.CourseTitle
		sourceName := meta.CourseTitle
		link := ""

		if meta.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
			sourceName += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
			l, err := t.store.LessonLink(ctx, meta.CourseTitle, *meta.LessonNumber)
			if err != nil {
				log.Debug().Err(err).Str("course", meta.CourseTitle).Msg("lesson link lookup failed")
			}
			link = l
		} else {
			l, err := t.store.CourseLink(ctx, meta.CourseTitle)
			if err != nil {
				log.Debug().Err(err).Str("course", meta.CourseTitle).Msg("course link lookup failed")
			}
			link = l
		}

		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, doc))
		sources = append(sources, models.Source{Name: sourceName, Link: link})
	}

	return strings.Join(blocks, "\n\n"), sources, nil
}
