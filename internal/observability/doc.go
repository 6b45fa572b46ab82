// Package observability provides logging and metrics support for the
// paper recommendation service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, sources, cache, ranking, and trends
//   - Context helpers for propagating request data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("search started")
//
// Add search context to logger:
//
//	logger = observability.WithSearchContext(logger, requestID, query)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("paperrec")
//
// Record metrics:
//
//	metrics.RecordSearchStarted()
//	metrics.RecordSourceSearch("arxiv", "ok", 42, 1.2)
//	metrics.RecordCacheHit()
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: Search request identifier
//   - user_id: User identifier
//   - query: User's search query
//   - source: Paper source (local, cnki, scholar, arxiv)
//   - paper_id: Paper identifier
//   - canonical_id: Paper identity key
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
