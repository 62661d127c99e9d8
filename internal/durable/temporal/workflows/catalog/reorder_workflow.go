package catalog

import (
	"go.temporal.io/sdk/workflow"

	catalogactivities "github.com/chinoiserie/catalog/internal/durable/temporal/activities/catalog"
	"github.com/chinoiserie/catalog/internal/durable/temporal/sequences"
)

const (
	// ReorderWorkflowName is the public identifier for registering the workflow.
	ReorderWorkflowName = "catalog.workflows.Reorder"
	// ReorderTaskQueue is the queue consumed by the worker processing reorder commits.
	ReorderTaskQueue = "CATALOG_REORDER"
)

// ReorderWorkflowInput carries a full ordering for one collection.
type ReorderWorkflowInput struct {
	Collection string
	Intents    []catalogactivities.SetSortOrderInput
	TraceID    string
}

// ReorderWorkflow persists every sort intent of a reorder and fails if any write failed.
func ReorderWorkflow(ctx workflow.Context, input ReorderWorkflowInput) (sequences.SortOrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ReorderWorkflow started", withTraceID(input.TraceID, "collection", input.Collection, "count", len(input.Intents))...)
	result, err := sequences.RunSortOrderSequence(ctx, input.Collection, input.Intents)
	if err != nil {
		logger.Error("ReorderWorkflow failed", withTraceID(input.TraceID, "collection", input.Collection, "failed", result.Failed, "error", err)...)
		return result, err
	}
	logger.Info("ReorderWorkflow completed", withTraceID(input.TraceID, "collection", input.Collection, "committed", result.Committed)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
