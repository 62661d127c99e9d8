package sequences

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	catalogactivities "github.com/chinoiserie/catalog/internal/durable/temporal/activities/catalog"
)

// SortOrderResult reports which ids were written and which failed after retries.
type SortOrderResult struct {
	Committed int
	Failed    []string
}

// RunSortOrderSequence schedules one SetSortOrder activity per intent, all in parallel,
// and waits for every one of them before reporting.
func RunSortOrderSequence(ctx workflow.Context, collection string, intents []catalogactivities.SetSortOrderInput) (SortOrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("sort order sequence started", "collection", collection, "count", len(intents))
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		// A cancelled reorder reports back only once its in-flight writes have finished.
		WaitForCancellation: true,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	futures := make([]workflow.Future, 0, len(intents))
	for _, intent := range intents {
		intent.Collection = collection
		futures = append(futures, workflow.ExecuteActivity(ctx, catalogactivities.SetSortOrderActivityName, intent))
	}

	var result SortOrderResult
	for i, future := range futures {
		if err := future.Get(ctx, nil); err != nil {
			logger.Error("sort order write failed", "collection", collection, "id", intents[i].ID, "error", err)
			result.Failed = append(result.Failed, intents[i].ID)
			continue
		}
		result.Committed++
	}
	if len(result.Failed) > 0 {
		return result, fmt.Errorf("%d of %d sort order writes failed: %v", len(result.Failed), len(intents), result.Failed)
	}
	logger.Info("sort order sequence completed", "collection", collection, "count", result.Committed)
	return result, nil
}
