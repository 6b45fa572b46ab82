// Package temporal wraps the Temporal SDK client and worker used to run
// the recurring trend analysis workflow.
package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
	"github.com/Midirushi/paper-recommendation-system/internal/temporal/workflows"
)

const (
	// TrendWorkflowID is the fixed workflow ID for the cron-scheduled
	// trend analysis run. One schedule exists per deployment.
	TrendWorkflowID = "trend-analysis"

	// DefaultTrendSchedule runs trend analysis daily at 03:00 UTC.
	DefaultTrendSchedule = "0 3 * * *"

	// DefaultWorkflowExecutionTimeout is the maximum time one trend
	// analysis run is allowed to take.
	DefaultWorkflowExecutionTimeout = 30 * time.Minute

	// DefaultHealthCheckTimeout is the timeout for Temporal server
	// health checks.
	DefaultHealthCheckTimeout = 5 * time.Second
)

var (
	// ErrWorkflowNotFound indicates the workflow execution was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyStarted indicates a workflow with the same ID is already running.
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrConnectionFailed indicates a connection failure to the Temporal server.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNamespaceNotFound indicates the namespace does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeadlineExceeded indicates the operation deadline was exceeded.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// TemporalError wraps a Temporal SDK error with the failed operation and
// a sentinel error kind for errors.Is matching.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	Err        error
}

// Error returns the error message.
func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s]", e.WorkflowID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TemporalError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *TemporalError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapTemporalError converts a Temporal SDK error to a TemporalError.
func wrapTemporalError(op string, err error, workflowID string) error {
	if err == nil {
		return nil
	}

	te := &TemporalError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}

	var notFoundErr *serviceerror.NotFound
	var alreadyStartedErr *serviceerror.WorkflowExecutionAlreadyStarted
	var namespaceNotFoundErr *serviceerror.NamespaceNotFound
	var invalidArgumentErr *serviceerror.InvalidArgument
	var deadlineExceededErr *serviceerror.DeadlineExceeded
	var unavailableErr *serviceerror.Unavailable

	switch {
	case errors.As(err, &notFoundErr):
		te.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStartedErr):
		te.Kind = ErrWorkflowAlreadyStarted
	case errors.As(err, &namespaceNotFoundErr):
		te.Kind = ErrNamespaceNotFound
	case errors.As(err, &invalidArgumentErr):
		te.Kind = ErrInvalidArgument
	case errors.As(err, &deadlineExceededErr):
		te.Kind = ErrDeadlineExceeded
	case errors.As(err, &unavailableErr):
		te.Kind = ErrConnectionFailed
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			te.Kind = ErrDeadlineExceeded
		} else if errors.Is(err, context.Canceled) {
			te.Kind = ErrClientClosed
		} else {
			te.Kind = ErrConnectionFailed
		}
	}

	return te
}

// IsWorkflowAlreadyStarted checks if the error indicates a workflow already started.
func IsWorkflowAlreadyStarted(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyStarted)
}

// IsConnectionFailed checks if the error indicates a connection failure.
func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// NewClient dials the Temporal server described by the configuration.
func NewClient(cfg config.TemporalConfig, logger zerolog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}
	return c, nil
}

// TrendWorkflowClient starts and manages the trend analysis workflow.
type TrendWorkflowClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	schedule           string
	healthCheckTimeout time.Duration
	closed             bool
}

// NewTrendWorkflowClient creates a TrendWorkflowClient over an existing
// Temporal client.
func NewTrendWorkflowClient(c client.Client, cfg config.TemporalConfig) *TrendWorkflowClient {
	schedule := cfg.TrendSchedule
	if schedule == "" {
		schedule = DefaultTrendSchedule
	}
	return &TrendWorkflowClient{
		client:             c,
		taskQueue:          cfg.TaskQueue,
		schedule:           schedule,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// StartSchedule starts the cron-scheduled trend analysis workflow. A
// schedule that is already running is not an error.
func (c *TrendWorkflowClient) StartSchedule(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "StartSchedule", Kind: ErrClientClosed}
	}

	options := client.StartWorkflowOptions{
		ID:                       TrendWorkflowID,
		TaskQueue:                c.taskQueue,
		CronSchedule:             c.schedule,
		WorkflowExecutionTimeout: 0, // cron workflows run indefinitely
		WorkflowRunTimeout:       DefaultWorkflowExecutionTimeout,
	}

	_, err := c.client.ExecuteWorkflow(ctx, options, workflows.TrendAnalysisWorkflow, workflows.TrendAnalysisInput{})
	if err != nil {
		wrapped := wrapTemporalError("StartSchedule", err, TrendWorkflowID)
		if IsWorkflowAlreadyStarted(wrapped) {
			return nil
		}
		return wrapped
	}
	return nil
}

// TriggerRun starts a one-off trend analysis run outside the cron
// schedule and returns its run ID.
func (c *TrendWorkflowClient) TriggerRun(ctx context.Context) (string, error) {
	if c.isClosed() {
		return "", &TemporalError{Op: "TriggerRun", Kind: ErrClientClosed}
	}

	workflowID := fmt.Sprintf("%s-manual-%d", TrendWorkflowID, time.Now().UnixNano())
	options := client.StartWorkflowOptions{
		ID:                 workflowID,
		TaskQueue:          c.taskQueue,
		WorkflowRunTimeout: DefaultWorkflowExecutionTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, workflows.TrendAnalysisWorkflow, workflows.TrendAnalysisInput{})
	if err != nil {
		return "", wrapTemporalError("TriggerRun", err, workflowID)
	}
	return run.GetRunID(), nil
}

// Health checks the connection health to the Temporal server.
func (c *TrendWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "")
	}
	return nil
}

// Close closes the underlying Temporal client connection.
func (c *TrendWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *TrendWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
