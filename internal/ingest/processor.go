// Package ingest parses course documents and splits their content into
// overlapping chunks for indexing.
//
// Expected document format:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<lesson content...>
//
//	Lesson 1: ...
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursemind/coursemind/internal/models"
)

var lessonHeader = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// Processor turns a course document into a catalog record plus content
// chunks of roughly chunkSize characters with chunkOverlap characters of
// trailing context carried into the next chunk.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ProcessFile reads and processes one course document.
func (p *Processor) ProcessFile(path string) (models.Course, []models.CourseChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Course{}, nil, fmt.Errorf("open course document: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return models.Course{}, nil, fmt.Errorf("read course document: %w", err)
	}

	return p.process(lines)
}

type lessonSection struct {
	number  int
	title   string
	link    string
	content []string
}

func (p *Processor) process(lines []string) (models.Course, []models.CourseChunk, error) {
	course := models.Course{}
	var sections []lessonSection
	var current *lessonSection
	var preamble []string

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		case lessonHeader.MatchString(line):
			m := lessonHeader.FindStringSubmatch(line)
			number, _ := strconv.Atoi(m[1])
			sections = append(sections, lessonSection{number: number, title: strings.TrimSpace(m[2])})
			current = &sections[len(sections)-1]
		case current != nil && strings.HasPrefix(line, "Lesson Link:"):
			current.link = strings.TrimSpace(strings.TrimPrefix(line, "Lesson Link:"))
		case current != nil:
			if line != "" {
				current.content = append(current.content, line)
			}
		default:
			if line != "" {
				preamble = append(preamble, line)
			}
		}
	}

	if course.Title == "" {
		return models.Course{}, nil, fmt.Errorf("course document has no 'Course Title:' header")
	}

	var chunks []models.CourseChunk
	chunkIndex := 0

	// Content before the first lesson header is indexed without a lesson
	// number.
	for _, text := range p.chunkText(strings.Join(preamble, " ")) {
		chunks = append(chunks, models.CourseChunk{
			Content:     text,
			CourseTitle: course.Title,
			ChunkIndex:  chunkIndex,
		})
		chunkIndex++
	}

	for _, section := range sections {
		course.Lessons = append(course.Lessons, models.Lesson{
			Number: section.number,
			Title:  section.title,
			Link:   section.link,
		})

		number := section.number
		for _, text := range p.chunkText(strings.Join(section.content, " ")) {
			chunks = append(chunks, models.CourseChunk{
				Content:      text,
				CourseTitle:  course.Title,
				LessonNumber: &number,
				ChunkIndex:   chunkIndex,
			})
			chunkIndex++
		}
	}

	return course, chunks, nil
}

var sentenceEnd = regexp.MustCompile(`(?:[.!?])\s+`)

// chunkText splits text on sentence boundaries into chunks of at most
// chunkSize characters, carrying chunkOverlap characters of trailing
// sentences into the next chunk.
func (p *Processor) chunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= p.chunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Carry trailing sentences as overlap into the next chunk.
		var overlap []string
		overlapLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			if overlapLen+len(current[i]) > p.chunkOverlap {
				break
			}
			overlap = append([]string{current[i]}, overlap...)
			overlapLen += len(current[i]) + 1
		}
		current = overlap
		currentLen = overlapLen
	}

	for _, sentence := range sentences {
		if currentLen+len(sentence) > p.chunkSize && currentLen > 0 {
			flush()
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func splitSentences(text string) []string {
	indexes := sentenceEnd.FindAllStringIndex(text, -1)
	var sentences []string
	start := 0
	for _, idx := range indexes {
		sentences = append(sentences, strings.TrimSpace(text[start:idx[1]]))
		start = idx[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
