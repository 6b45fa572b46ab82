package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Request body and query parameter bounds.
const (
	maxRequestBodySize  = 1 << 20 // 1 MB
	defaultSimilarLimit = 10
	maxSimilarLimit     = 50
)

// searchRequest is the JSON request body for POST /search.
type searchRequest struct {
	Query  string `json:"query" validate:"required,max=2000"`
	UserID string `json:"user_id" validate:"required,max=128"`
}

// interactionRequest is the JSON request body for POST /interactions.
type interactionRequest struct {
	UserID  string `json:"user_id" validate:"required,max=128"`
	PaperID string `json:"paper_id" validate:"required,uuid"`
	Action  string `json:"action" validate:"required,oneof=view save download"`
}

// searchHandler handles POST /api/v1/search.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req searchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	start := time.Now()
	set, err := s.search.Search(ctx, req.UserID, req.Query)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainSetToSearchResponse(set, time.Since(start)))
}

// recommendationsHandler handles GET /api/v1/recommendations/{userID}.
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	recs, mode, err := s.recommender.Recommend(ctx, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{
		UserID:  userID,
		Mode:    mode,
		Results: domainCandidatesToResponse(recs),
	})
}

// getPaperHandler handles GET /api/v1/papers/{paperID}.
func (s *Server) getPaperHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.papers.GetByID(ctx, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainPaperToResponse(paper))
}

// similarPapersHandler handles GET /api/v1/papers/{paperID}/similar.
func (s *Server) similarPapersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	limit := parseLimitParam(r, defaultSimilarLimit, maxSimilarLimit)

	similar, err := s.similar.SimilarTo(ctx, paperID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, similarPapersToResponse(paperID.String(), similar))
}

// trendingHandler handles GET /api/v1/trending.
func (s *Server) trendingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recs, err := s.recommender.Trending(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{
		Mode:    "trending",
		Results: domainCandidatesToResponse(recs),
	})
}

// latestTrendsHandler handles GET /api/v1/trends/latest.
func (s *Server) latestTrendsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot, err := s.trends.LatestSnapshot(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainSnapshotToResponse(snapshot))
}

// recordInteractionHandler handles POST /api/v1/interactions. The event
// is persisted synchronously; publication to the event stream is
// best-effort since the listener's insert is idempotent on the event ID.
func (s *Server) recordInteractionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req interactionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	paperID, err := uuid.Parse(req.PaperID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "paper_id must be a valid UUID")
		return
	}

	event := &domain.InteractionEvent{
		ID:        uuid.New(),
		UserID:    req.UserID,
		PaperID:   paperID,
		Action:    domain.InteractionAction(req.Action),
		Timestamp: time.Now().UTC(),
	}

	if err := s.interactions.Insert(ctx, event); err != nil {
		writeDomainError(w, err)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).
				Str("user_id", event.UserID).
				Msg("failed to publish interaction event")
		}
	}

	writeJSON(w, http.StatusAccepted, recordInteractionResponse{
		ID:     event.ID.String(),
		Status: "recorded",
	})
}

// decodeAndValidate reads a JSON request body into dst and validates
// it, writing a 400 response on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid field %q: failed %q validation", field, verrs[0].Tag()))
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}

	return true
}

// writeDomainError maps domain errors to HTTP status codes without
// leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		writeError(w, http.StatusConflict, "paper has no embedding yet")
	case errors.Is(err, domain.ErrDeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "search deadline exceeded")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID path parameter, writing a 400 response when
// invalid. Parse details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parseLimitParam reads the limit query parameter, applying default and
// maximum bounds.
func parseLimitParam(r *http.Request, def, max int) int {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
