// Package rag owns the top-level query pipeline: session handling, source
// collection around the tool-calling generator, analytics, and document
// ingestion.
package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/coursemind/coursemind/internal/ingest"
	"github.com/coursemind/coursemind/internal/models"
	"github.com/coursemind/coursemind/internal/service"
	"github.com/coursemind/coursemind/internal/tools"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// responseGenerator is the model front door (implemented by
// agent.ResponseGenerator).
type responseGenerator interface {
	Generate(ctx context.Context, query, history string, registry *tools.Registry) (string, error)
}

// courseCatalog is the slice of the course store the pipeline itself needs
// beyond what the tools consume.
type courseCatalog interface {
	tools.CourseStore
	AddCourse(ctx context.Context, course models.Course) error
	AddChunks(ctx context.Context, chunks []models.CourseChunk) error
	ExistingCourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// System wires the generator, session store, course store and tool registry
// into the query pipeline the HTTP layer calls.
type System struct {
	generator responseGenerator
	sessions  service.SessionManager
	store     courseCatalog
	processor *ingest.Processor
	registry  *tools.Registry

	// The registry's source side-channel is shared mutable state; queries are
	// serialized so sources never mix across concurrent requests.
	mu sync.Mutex
}

func NewSystem(generator responseGenerator, sessions service.SessionManager, store courseCatalog, processor *ingest.Processor) *System {
	registry := tools.NewRegistry()
	registry.Register(tools.NewSearchTool(store))
	registry.Register(tools.NewOutlineTool(store))

	return &System{
		generator: generator,
		sessions:  sessions,
		store:     store,
		processor: processor,
		registry:  registry,
	}
}

// Query answers one user query. When sessionID is empty a new session is
// created; the session ID in use is always returned. The returned sources
// reflect only tool executions performed for this query.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []models.Source, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return "", nil, "", fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	}

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return "", nil, "", fmt.Errorf("load history: %w", err)
	}

	s.registry.ResetSources()

	answer, err := s.generator.Generate(ctx, query, history, s.registry)
	if err != nil {
		return "", nil, "", err
	}
	sources := s.registry.CollectSources()

	if err := s.sessions.AddExchange(ctx, sessionID, query, answer); err != nil {
		// History is best-effort; the answer already exists.
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record exchange")
	}

	return answer, sources, sessionID, nil
}

// NewSession creates an empty conversation session.
func (s *System) NewSession(ctx context.Context) (string, error) {
	return s.sessions.Create(ctx)
}

// Analytics returns course catalog statistics.
func (s *System) Analytics(ctx context.Context) (models.CourseStats, error) {
	count, err := s.store.CourseCount(ctx)
	if err != nil {
		return models.CourseStats{}, fmt.Errorf("count courses: %w", err)
	}
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return models.CourseStats{}, fmt.Errorf("list course titles: %w", err)
	}
	return models.CourseStats{TotalCourses: count, CourseTitles: titles}, nil
}

// AddCourseFolder ingests every course document in a folder, skipping courses
// already in the catalog unless clearExisting wipes the indices first. Files
// are parsed concurrently; indexing runs serially to keep chunk ordering
// deterministic.
func (s *System) AddCourseFolder(ctx context.Context, path string, clearExisting bool) (int, int, error) {
	if clearExisting {
		if err := s.store.Clear(ctx); err != nil {
			return 0, 0, fmt.Errorf("clear indices: %w", err)
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read docs folder: %w", err)
	}

	existing, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list existing courses: %w", err)
	}

	type parsed struct {
		course models.Course
		chunks []models.CourseChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	results := make([]*parsed, len(entries))
	for i, entry := range entries {
		if entry.IsDir() || !isCourseDocument(entry.Name()) {
			continue
		}
		i, name := i, entry.Name()
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			course, chunks, err := s.processor.ProcessFile(filepath.Join(path, name))
			if err != nil {
				return fmt.Errorf("process %s: %w", name, err)
			}
			results[i] = &parsed{course: course, chunks: chunks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	coursesAdded, chunksAdded := 0, 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if slices.Contains(existing, r.course.Title) {
			log.Debug().Str("course", r.course.Title).Msg("course already ingested, skipping")
			continue
		}
		if err := s.store.AddCourse(ctx, r.course); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("add course %q: %w", r.course.Title, err)
		}
		if err := s.store.AddChunks(ctx, r.chunks); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("add chunks for %q: %w", r.course.Title, err)
		}
		coursesAdded++
		chunksAdded += len(r.chunks)
		log.Info().Str("course", r.course.Title).Int("chunks", len(r.chunks)).Msg("course ingested")
	}

	return coursesAdded, chunksAdded, nil
}

func isCourseDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
