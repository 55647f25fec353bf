// Package service wraps the external collaborators: the Elasticsearch-backed
// course store and the session history stores.
package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coursemind/coursemind/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"golang.org/x/sync/singleflight"
)

const titleCacheTTL = 5 * time.Minute

// CourseStore wraps the go-elasticsearch client with the retrieval operations
// the tools and the ingestion pipeline need: relevance search over content
// chunks, fuzzy course-name resolution, and catalog lookups.
type CourseStore struct {
	client       *elasticsearch.Client
	catalogIndex string
	contentIndex string
	maxResults   int

	// Course-title cache: titles change only on ingestion, so analytics and
	// resolution share a short-TTL snapshot. singleflight deduplicates
	// concurrent refreshes.
	titleMu      sync.RWMutex
	titles       []string
	titlesExpire time.Time
	titleGroup   singleflight.Group
}

// NewCourseStore creates a store backed by an Elasticsearch cluster.
func NewCourseStore(scheme, host string, port int, user, password string, verifyCerts bool, maxRetries int, catalogIndex, contentIndex string, maxResults int) (*CourseStore, error) {
	addr := fmt.Sprintf("%s://%s:%d", scheme, host, port)

	cfg := elasticsearch.Config{
		Addresses:  []string{addr},
		MaxRetries: maxRetries,
	}
	if user != "" {
		cfg.Username = user
		cfg.Password = password
	}
	if !verifyCerts {
		cfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - user explicitly disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	return &CourseStore{
		client:       client,
		catalogIndex: catalogIndex,
		contentIndex: contentIndex,
		maxResults:   maxResults,
	}, nil
}

// TestConnection pings the cluster
func (s *CourseStore) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

var catalogMapping = `{
  "mappings": {
    "properties": {
      "title":       {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "course_link": {"type": "keyword"},
      "instructor":  {"type": "text"},
      "lessons": {
        "properties": {
          "lesson_number": {"type": "integer"},
          "lesson_title":  {"type": "text"},
          "lesson_link":   {"type": "keyword"}
        }
      }
    }
  }
}`

var contentMapping = `{
  "mappings": {
    "properties": {
      "content":       {"type": "text"},
      "course_title":  {"type": "keyword"},
      "lesson_number": {"type": "integer"},
      "chunk_index":   {"type": "integer"}
    }
  }
}`

// EnsureIndices creates the catalog and content indices if they don't exist.
func (s *CourseStore) EnsureIndices(ctx context.Context) error {
	for index, mapping := range map[string]string{
		s.catalogIndex: catalogMapping,
		s.contentIndex: contentMapping,
	} {
		exists, err := s.client.Indices.Exists([]string{index},
			s.client.Indices.Exists.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("check index %s: %w", index, err)
		}
		exists.Body.Close()
		if exists.StatusCode == http.StatusOK {
			continue
		}

		res, err := s.client.Indices.Create(index,
			s.client.Indices.Create.WithContext(ctx),
			s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		)
		if err != nil {
			return fmt.Errorf("create index %s: %w", index, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("create index %s: %s", index, res.Status())
		}
	}
	return nil
}

// Clear deletes both indices and recreates them empty.
func (s *CourseStore) Clear(ctx context.Context) error {
	res, err := s.client.Indices.Delete([]string{s.catalogIndex, s.contentIndex},
		s.client.Indices.Delete.WithContext(ctx),
		s.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete indices: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete indices: %s", res.Status())
	}
	s.invalidateTitles()
	return s.EnsureIndices(ctx)
}

// AddCourse indexes one catalog record, keyed by course title so re-ingesting
// a course overwrites its catalog entry.
func (s *CourseStore) AddCourse(ctx context.Context, course models.Course) error {
	body, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}

	res, err := s.client.Index(s.catalogIndex, bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(url.PathEscape(course.Title)),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index course: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index course: %s", res.Status())
	}
	s.invalidateTitles()
	return nil
}

// AddChunks bulk-indexes content chunks.
func (s *CourseStore) AddChunks(ctx context.Context, chunks []models.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, chunk := range chunks {
		buf.WriteString(`{"index":{}}` + "\n")
		line, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("marshal chunk: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	res, err := s.client.Bulk(&buf,
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.contentIndex),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk index chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index chunks: %s", res.Status())
	}
	return nil
}

// Search runs a relevance query over content chunks. courseTitle (canonical)
// and lessonNumber are optional filters; limit <= 0 uses the configured
// maximum.
func (s *CourseStore) Search(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) (models.SearchResults, error) {
	size := limit
	if size <= 0 {
		size = s.maxResults
	}

	var filters []map[string]interface{}
	if courseTitle != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"course_title": courseTitle},
		})
	}
	if lessonNumber != nil {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"lesson_number": *lessonNumber},
		})
	}

	esQuery := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{"content": query},
				},
				"filter": filters,
			},
		},
	}

	hits, err := s.search(ctx, s.contentIndex, esQuery)
	if err != nil {
		return models.SearchResults{}, err
	}

	results := models.SearchResults{}
	for _, hit := range hits {
		var chunk models.CourseChunk
		if err := json.Unmarshal(hit.Source, &chunk); err != nil {
			return models.SearchResults{}, fmt.Errorf("decode chunk: %w", err)
		}
		results.Documents = append(results.Documents, chunk.Content)
		results.Metadata = append(results.Metadata, models.ChunkMetadata{
			CourseTitle:  chunk.CourseTitle,
			LessonNumber: chunk.LessonNumber,
			ChunkIndex:   chunk.ChunkIndex,
		})
		results.Scores = append(results.Scores, hit.Score)
	}
	return results, nil
}

// ResolveCourseName fuzzy-matches a partial course name against catalog
// titles and returns the canonical title of the best hit, or "" when nothing
// matches.
func (s *CourseStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	esQuery := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"title": map[string]interface{}{
					"query":     name,
					"fuzziness": "AUTO",
				},
			},
		},
	}

	hits, err := s.search(ctx, s.catalogIndex, esQuery)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}

	var course models.Course
	if err := json.Unmarshal(hits[0].Source, &course); err != nil {
		return "", fmt.Errorf("decode course: %w", err)
	}
	return course.Title, nil
}

// CourseOutline returns the catalog record for a canonical course title.
func (s *CourseStore) CourseOutline(ctx context.Context, courseTitle string) (models.CourseOutline, error) {
	course, err := s.getCourse(ctx, courseTitle)
	if err != nil {
		return models.CourseOutline{}, err
	}
	return models.CourseOutline{
		Title:      course.Title,
		Instructor: course.Instructor,
		Link:       course.Link,
		Lessons:    course.Lessons,
	}, nil
}

// CourseLink returns the course-level deep link, or "" when unknown.
func (s *CourseStore) CourseLink(ctx context.Context, courseTitle string) (string, error) {
	course, err := s.getCourse(ctx, courseTitle)
	if err != nil {
		return "", err
	}
	return course.Link, nil
}

// LessonLink returns the lesson-level deep link, or "" when the lesson has
// none.
func (s *CourseStore) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	course, err := s.getCourse(ctx, courseTitle)
	if err != nil {
		return "", err
	}
	for _, lesson := range course.Lessons {
		if lesson.Number == lessonNumber {
			return lesson.Link, nil
		}
	}
	return "", nil
}

// ExistingCourseTitles returns all catalog titles; used by ingestion to skip
// already-loaded courses.
func (s *CourseStore) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	return s.cachedTitles(ctx)
}

// CourseCount returns the number of courses in the catalog.
func (s *CourseStore) CourseCount(ctx context.Context) (int, error) {
	titles, err := s.cachedTitles(ctx)
	if err != nil {
		return 0, err
	}
	return len(titles), nil
}

// CourseTitles returns all course titles for analytics.
func (s *CourseStore) CourseTitles(ctx context.Context) ([]string, error) {
	return s.cachedTitles(ctx)
}

func (s *CourseStore) getCourse(ctx context.Context, courseTitle string) (models.Course, error) {
	esQuery := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"title.keyword": courseTitle},
		},
	}

	hits, err := s.search(ctx, s.catalogIndex, esQuery)
	if err != nil {
		return models.Course{}, err
	}
	if len(hits) == 0 {
		return models.Course{}, fmt.Errorf("course %q not in catalog", courseTitle)
	}

	var course models.Course
	if err := json.Unmarshal(hits[0].Source, &course); err != nil {
		return models.Course{}, fmt.Errorf("decode course: %w", err)
	}
	return course, nil
}

func (s *CourseStore) cachedTitles(ctx context.Context) ([]string, error) {
	s.titleMu.RLock()
	if s.titles != nil && time.Now().Before(s.titlesExpire) {
		titles := s.titles
		s.titleMu.RUnlock()
		return titles, nil
	}
	s.titleMu.RUnlock()

	v, err, _ := s.titleGroup.Do("titles", func() (interface{}, error) {
		titles, err := s.fetchTitles(ctx)
		if err != nil {
			return nil, err
		}
		s.titleMu.Lock()
		s.titles = titles
		s.titlesExpire = time.Now().Add(titleCacheTTL)
		s.titleMu.Unlock()
		return titles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (s *CourseStore) fetchTitles(ctx context.Context) ([]string, error) {
	esQuery := map[string]interface{}{
		"size":    1000,
		"_source": []string{"title"},
		"query":   map[string]interface{}{"match_all": map[string]interface{}{}},
	}

	hits, err := s.search(ctx, s.catalogIndex, esQuery)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(hits))
	for _, hit := range hits {
		var course models.Course
		if err := json.Unmarshal(hit.Source, &course); err != nil {
			return nil, fmt.Errorf("decode course: %w", err)
		}
		titles = append(titles, course.Title)
	}
	return titles, nil
}

func (s *CourseStore) invalidateTitles() {
	s.titleMu.Lock()
	s.titles = nil
	s.titleMu.Unlock()
}

type esHit struct {
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

func (s *CourseStore) search(ctx context.Context, index string, query map[string]interface{}) ([]esHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %s: %s: %s", index, res.Status(), string(msg))
	}

	var parsed struct {
		Hits struct {
			Hits []esHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Hits.Hits, nil
}
