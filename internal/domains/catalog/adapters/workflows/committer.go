package workflows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
	catalogactivities "github.com/chinoiserie/catalog/internal/durable/temporal/activities/catalog"
	catalogworkflows "github.com/chinoiserie/catalog/internal/durable/temporal/workflows/catalog"
)

var (
	_ ports.ReorderCommitter[int64]  = (*TemporalReorderCommitter[int64])(nil)
	_ ports.ReorderCommitter[string] = (*TemporalReorderCommitter[string])(nil)
	_ ports.ReorderCommitter[int64]  = (*InlineReorderCommitter[int64])(nil)
)

const (
	// DefaultExecutionTimeout bounds a reorder workflow, including time spent queued without a worker.
	DefaultExecutionTimeout = 2 * time.Minute
	// DefaultSettleTimeout bounds the wait for a cancelled reorder to stop before it is terminated.
	DefaultSettleTimeout = 10 * time.Second
)

// WorkflowStarter is the part of client.Client the committer needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string, runID string) error
	TerminateWorkflow(ctx context.Context, workflowID string, runID string, reason string, details ...interface{}) error
}

// TemporalReorderCommitter persists a reorder through a durable Temporal workflow,
// so individual sort order writes are retried by the worker.
type TemporalReorderCommitter[K comparable] struct {
	starter    WorkflowStarter
	taskQueue  string
	collection string
	formatID   func(K) string
	fallback   ports.ReorderCommitter[K]

	executionTimeout time.Duration
	settleTimeout    time.Duration
}

// WithTimeouts overrides the workflow execution bound and the wait for an abandoned run to stop.
// Non-positive values keep the defaults.
func (c *TemporalReorderCommitter[K]) WithTimeouts(execution, settle time.Duration) *TemporalReorderCommitter[K] {
	if execution > 0 {
		c.executionTimeout = execution
	}
	if settle > 0 {
		c.settleTimeout = settle
	}
	return c
}

// WithFallback sets the committer used when the Temporal frontend is unavailable.
func (c *TemporalReorderCommitter[K]) WithFallback(fallback ports.ReorderCommitter[K]) *TemporalReorderCommitter[K] {
	c.fallback = fallback
	return c
}

// NewTemporalProductCommitter commits product reorders on the catalog task queue.
func NewTemporalProductCommitter(starter WorkflowStarter) *TemporalReorderCommitter[int64] {
	return &TemporalReorderCommitter[int64]{
		starter:    starter,
		taskQueue:  catalogworkflows.ReorderTaskQueue,
		collection: catalogactivities.CollectionProducts,
		formatID:   func(id int64) string { return strconv.FormatInt(id, 10) },

		executionTimeout: DefaultExecutionTimeout,
		settleTimeout:    DefaultSettleTimeout,
	}
}

// NewTemporalCategoryCommitter commits category reorders on the catalog task queue.
func NewTemporalCategoryCommitter(starter WorkflowStarter) *TemporalReorderCommitter[string] {
	return &TemporalReorderCommitter[string]{
		starter:    starter,
		taskQueue:  catalogworkflows.ReorderTaskQueue,
		collection: catalogactivities.CollectionCategories,
		formatID:   func(id string) string { return id },

		executionTimeout: DefaultExecutionTimeout,
		settleTimeout:    DefaultSettleTimeout,
	}
}

// CommitOrder starts the reorder workflow and blocks until it settles. When ctx ends first the
// run is cancelled, and terminated if it does not stop in time, so no write lands after the
// caller has been told the reorder failed.
func (c *TemporalReorderCommitter[K]) CommitOrder(ctx context.Context, intents []ports.SortIntent[K]) error {
	if c == nil || c.starter == nil {
		return errors.New("temporal reorder committer not configured")
	}
	input := catalogworkflows.ReorderWorkflowInput{
		Collection: c.collection,
		Intents:    make([]catalogactivities.SetSortOrderInput, 0, len(intents)),
		TraceID:    workflowTraceID(ctx),
	}
	for _, intent := range intents {
		input.Intents = append(input.Intents, catalogactivities.SetSortOrderInput{
			Collection: c.collection,
			ID:         c.formatID(intent.ID),
			Order:      intent.Order,
		})
	}
	options := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("catalog-reorder-%s-%s", c.collection, uuid.NewString()),
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: c.executionTimeout,
	}
	run, err := c.starter.ExecuteWorkflow(ctx, options, catalogworkflows.ReorderWorkflowName, input)
	if err != nil {
		var unavailable *serviceerror.Unavailable
		if errors.As(err, &unavailable) && c.fallback != nil {
			return c.fallback.CommitOrder(ctx, intents)
		}
		return fmt.Errorf("start reorder workflow: %w", err)
	}
	if err := run.Get(ctx, nil); err != nil {
		if ctx.Err() != nil {
			err = errors.Join(err, c.abandon(ctx, run))
		}
		return fmt.Errorf("reorder workflow %s: %w", options.ID, err)
	}
	return nil
}

// abandon stops a run the caller no longer waits for. Cancellation lets in-flight sort order
// writes finish; a run that has not stopped within settleTimeout (no worker polling) is terminated.
func (c *TemporalReorderCommitter[K]) abandon(ctx context.Context, run client.WorkflowRun) error {
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settleTimeout)
	defer cancel()
	if err := c.starter.CancelWorkflow(settleCtx, run.GetID(), run.GetRunID()); err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return c.terminate(ctx, run, fmt.Errorf("cancel reorder workflow: %w", err))
	}
	if err := run.Get(settleCtx, nil); err != nil && settleCtx.Err() != nil {
		return c.terminate(ctx, run, nil)
	}
	return nil
}

func (c *TemporalReorderCommitter[K]) terminate(ctx context.Context, run client.WorkflowRun, cause error) error {
	terminateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settleTimeout)
	defer cancel()
	err := c.starter.TerminateWorkflow(terminateCtx, run.GetID(), run.GetRunID(), "reorder abandoned by caller")
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		err = nil
	}
	if err != nil {
		return errors.Join(cause, fmt.Errorf("terminate reorder workflow: %w", err))
	}
	return nil
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// InlineReorderCommitter writes every sort intent straight to the collection service,
// one call at a time, and reports all failed writes together.
type InlineReorderCommitter[K comparable] struct {
	service ports.ItemService[K]
}

// NewInlineReorderCommitter creates an InlineReorderCommitter over service.
func NewInlineReorderCommitter[K comparable](service ports.ItemService[K]) *InlineReorderCommitter[K] {
	return &InlineReorderCommitter[K]{service: service}
}

// CommitOrder stores each intent's order.
func (c *InlineReorderCommitter[K]) CommitOrder(ctx context.Context, intents []ports.SortIntent[K]) error {
	var errs []error
	for _, intent := range intents {
		if err := c.service.SetSortOrder(ctx, intent.ID, intent.Order); err != nil {
			errs = append(errs, fmt.Errorf("item %v: %w", intent.ID, err))
		}
	}
	return errors.Join(errs...)
}
