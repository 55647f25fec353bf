// Package models holds the domain types and HTTP DTOs shared across the
// service: courses, chunks, search results, citations, and request/response
// envelopes.
package models

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the catalog record for one course document.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// CourseChunk is one indexed piece of course content.
type CourseChunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// CourseOutline describes a course's structure as returned by the outline tool.
type CourseOutline struct {
	Title      string   `json:"title"`
	Instructor string   `json:"instructor,omitempty"`
	Link       string   `json:"course_link,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Source is a citation record naming the course/lesson material backing part
// of an answer. Link is optional.
type Source struct {
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}
