package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	userIDKey     contextKey = "user_id"
	workflowIDKey contextKey = "workflow_id"
	runIDKey      contextKey = "workflow_run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithUserID adds a user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the user ID from context.
// Returns empty string if not present.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(userIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithWorkflow adds workflow ID and run ID to the context.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	ctx = context.WithValue(ctx, workflowIDKey, workflowID)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// WorkflowFromContext retrieves workflow ID and run ID from context.
// Returns empty strings if not present.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	if v := ctx.Value(workflowIDKey); v != nil {
		if id, ok := v.(string); ok {
			workflowID = id
		}
	}
	if v := ctx.Value(runIDKey); v != nil {
		if id, ok := v.(string); ok {
			runID = id
		}
	}
	return workflowID, runID
}
