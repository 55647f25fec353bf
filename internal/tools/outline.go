package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemind/coursemind/internal/models"
)

// OutlineTool returns a course's structure: title, instructor, link, and the
// ordered lesson list. Course titles are fuzzy-resolved the same way the
// search tool resolves them.
type OutlineTool struct {
	store CourseStore
}

func NewOutlineTool(store CourseStore) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Definition() Definition {
	return Definition{
		Name:        "get_course_outline",
		Description: "Get the outline of a course including title, course link, and complete lesson list",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"course_title": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			"required": []string{"course_title"},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, input map[string]interface{}) (string, []models.Source, error) {
	courseTitle, _ := input["course_title"].(string)
	if courseTitle == "" {
		return "", nil, fmt.Errorf("course_title parameter is required")
	}

	resolved, err := t.store.ResolveCourseName(ctx, courseTitle)
	if err != nil {
		return "", nil, fmt.Errorf("resolve course name: %w", err)
	}
	if resolved == "" {
		return fmt.Sprintf("No course found matching '%s'", courseTitle), nil, nil
	}

	outline, err := t.store.CourseOutline(ctx, resolved)
	if err != nil {
		return "", nil, fmt.Errorf("get course outline: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", outline.Title)
	if outline.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", outline.Instructor)
	}
	if outline.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", outline.Link)
	}
	b.WriteString("Lessons:\n")
	for _, lesson := range outline.Lessons {
		fmt.Fprintf(&b, "  Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	source := models.Source{Name: outline.Title, Link: outline.Link}
	return b.String(), []models.Source{source}, nil
}
