// Package httpserver provides the HTTP REST API for the paper
// recommendation service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/database"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

// SearchService runs one search for a user.
type SearchService interface {
	Search(ctx context.Context, userID, query string) (*domain.CandidateSet, error)
}

// RecommendService serves recommendation and trending lists.
type RecommendService interface {
	Recommend(ctx context.Context, userID string) ([]domain.Candidate, string, error)
	Trending(ctx context.Context) ([]domain.Candidate, error)
}

// SimilarityService answers paper similarity queries.
type SimilarityService interface {
	SimilarTo(ctx context.Context, paperID uuid.UUID, limit int) ([]vector.SimilarPaper, error)
}

// PaperReader loads single papers.
type PaperReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
}

// TrendReader serves the latest trend snapshot.
type TrendReader interface {
	LatestSnapshot(ctx context.Context) (*domain.TrendSnapshot, error)
}

// InteractionStore persists interaction events.
type InteractionStore interface {
	Insert(ctx context.Context, event *domain.InteractionEvent) error
}

// EventPublisher publishes interaction events to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.InteractionEvent) error
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	search       SearchService
	recommender  RecommendService
	similar      SimilarityService
	papers       PaperReader
	trends       TrendReader
	interactions InteractionStore
	publisher    EventPublisher
	db           HealthChecker
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewServer creates the HTTP server with all dependencies. publisher
// may be nil when the event stream is disabled.
func NewServer(
	cfg config.ServerConfig,
	search SearchService,
	recommender RecommendService,
	similar SimilarityService,
	papers PaperReader,
	trends TrendReader,
	interactions InteractionStore,
	publisher EventPublisher,
	db HealthChecker,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		search:       search,
		recommender:  recommender,
		similar:      similar,
		papers:       papers,
		trends:       trends,
		interactions: interactions,
		publisher:    publisher,
		db:           db,
		validate:     validator.New(),
		logger:       logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestContextMiddleware)
	r.Use(s.requestLogMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.searchHandler)
		r.Get("/recommendations/{userID}", s.recommendationsHandler)
		r.Get("/papers/{paperID}", s.getPaperHandler)
		r.Get("/papers/{paperID}/similar", s.similarPapersHandler)
		r.Get("/trending", s.trendingHandler)
		r.Get("/trends/latest", s.latestTrendsHandler)
		r.Post("/interactions", s.recordInteractionHandler)
	})

	return r
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler reports whether the server can serve traffic.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent; nothing to do.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
