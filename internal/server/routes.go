package server

import (
	"context"
	"net/http"
	"os"

	"github.com/coursemind/coursemind/internal/agent"
	"github.com/coursemind/coursemind/internal/handler"
	"github.com/coursemind/coursemind/internal/ingest"
	"github.com/coursemind/coursemind/internal/middleware"
	"github.com/coursemind/coursemind/internal/rag"
	"github.com/coursemind/coursemind/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func (s *Server) setupRoutes(ctx context.Context) (http.Handler, error) {
	cfg := s.cfg

	// ─── Services ───────────────────────────────────────────────────────────────
	store, err := service.NewCourseStore(
		cfg.ElasticsearchScheme,
		cfg.ElasticsearchHost,
		cfg.ElasticsearchPort,
		cfg.ElasticsearchUser,
		cfg.ElasticsearchPassword,
		cfg.ElasticsearchVerifyCerts,
		cfg.ElasticsearchMaxRetries,
		cfg.CatalogIndex,
		cfg.ContentIndex,
		cfg.MaxResults,
	)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndices(ctx); err != nil {
		log.Warn().Err(err).Msg("could not ensure Elasticsearch indices, continuing degraded")
	}

	var sessions service.SessionManager
	if cfg.PostgresDSN != "" {
		pg, err := service.NewPostgresSessionManager(ctx, cfg.PostgresDSN, cfg.MaxHistory)
		if err != nil {
			return nil, err
		}
		s.sessions = pg
		sessions = pg
	} else {
		log.Info().Msg("POSTGRES_DSN not set - using in-memory session store")
		sessions = service.NewMemorySessionManager(cfg.MaxHistory)
	}

	if cfg.AnthropicAPIKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY not set - model calls will fail")
	}
	generator := agent.NewResponseGenerator(
		cfg.AnthropicAPIKey,
		cfg.AnthropicModel,
		cfg.AnthropicBaseURL,
		cfg.MaxToolRounds,
	)

	// Connectivity pre-check, separate from query handling: log and continue
	// degraded rather than refuse to start.
	if ok, msg := generator.TestConnection(ctx); ok {
		log.Info().Str("model", cfg.AnthropicModel).Msg(msg)
	} else {
		log.Error().Str("model", cfg.AnthropicModel).Msg(msg)
	}

	processor := ingest.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	ragSystem := rag.NewSystem(generator, sessions, store, processor)

	// Initial document load
	if _, err := os.Stat(cfg.DocsPath); err == nil {
		courses, chunks, err := ragSystem.AddCourseFolder(ctx, cfg.DocsPath, false)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.DocsPath).Msg("initial document load failed")
		} else {
			log.Info().Int("courses", courses).Int("chunks", chunks).Msg("initial documents loaded")
		}
	} else {
		log.Warn().Str("path", cfg.DocsPath).Msg("docs path does not exist, skipping initial load")
	}

	log.Info().
		Bool("postgres_sessions", s.sessions != nil).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Int("max_tool_rounds", cfg.MaxToolRounds).
		Int("max_results", cfg.MaxResults).
		Msg("service configuration")

	// ─── Handlers ────────────────────────────────────────────────────────────────
	healthChecks := map[string]handler.HealthChecker{
		"elasticsearch": store,
	}
	if s.sessions != nil {
		healthChecks["postgres"] = s.sessions
	}
	healthH := handler.NewHealthHandler(healthChecks)
	queryH := handler.NewQueryHandler(ragSystem, cfg.MaxQueryLength)
	coursesH := handler.NewCoursesHandler(ragSystem)
	sessionH := handler.NewSessionHandler(ragSystem)
	ingestH := handler.NewIngestHandler(ragSystem, cfg.DocsPath)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.RateLimitPerMinute),
	}
	if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}

	r.Group(func(r chi.Router) {
		for _, m := range apiMiddleware {
			r.Use(m)
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Post("/query", queryH.Query)
			r.Get("/courses", coursesH.Stats)
			r.Post("/sessions", sessionH.Create)
			r.Post("/ingest", ingestH.Ingest)
		})
	})

	return r, nil
}
