package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

const (
	// SetSortOrderActivityName writes one item's position to its collection service.
	SetSortOrderActivityName = "catalog.activities.SetSortOrder"

	// CollectionProducts and CollectionCategories select the service an activity writes to.
	CollectionProducts   = "products"
	CollectionCategories = "categories"
)

// SetSortOrderInput carries one sort intent. IDs travel as strings so one activity serves
// both int64 product ids and category slugs.
type SetSortOrderInput struct {
	Collection string
	ID         string
	Order      int
}

// Activities groups the activities that write to the catalog collections.
type Activities struct {
	products   ports.ItemService[int64]
	categories ports.ItemService[string]
}

// NewActivities wires the collection services into the Temporal activities bundle.
// Either service may be nil when the worker only serves one collection.
func NewActivities(products ports.ItemService[int64], categories ports.ItemService[string]) *Activities {
	return &Activities{products: products, categories: categories}
}

// SetSortOrder stores input.Order as the sort order of input.ID.
func (a *Activities) SetSortOrder(ctx context.Context, input SetSortOrderInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil {
		return errors.New("catalog activities not initialized")
	}
	logger.Info("SetSortOrder activity started", "collection", input.Collection, "id", input.ID, "order", input.Order)
	var err error
	switch input.Collection {
	case CollectionProducts:
		err = a.setProductOrder(ctx, input)
	case CollectionCategories:
		err = a.setCategoryOrder(ctx, input)
	default:
		err = temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown collection %q", input.Collection), "UnknownCollection", nil)
	}
	if err != nil {
		logger.Error("SetSortOrder activity failed", "collection", input.Collection, "id", input.ID, "error", err)
		return err
	}
	logger.Info("SetSortOrder activity completed", "collection", input.Collection, "id", input.ID)
	return nil
}

func (a *Activities) setProductOrder(ctx context.Context, input SetSortOrderInput) error {
	if a.products == nil {
		return temporal.NewNonRetryableApplicationError("product collection not configured", "NotConfigured", nil)
	}
	id, err := strconv.ParseInt(input.ID, 10, 64)
	if err != nil {
		return temporal.NewNonRetryableApplicationError(fmt.Sprintf("invalid product id %q", input.ID), "InvalidID", err)
	}
	return nonRetryableNotFound(a.products.SetSortOrder(ctx, id, input.Order))
}

func (a *Activities) setCategoryOrder(ctx context.Context, input SetSortOrderInput) error {
	if a.categories == nil {
		return temporal.NewNonRetryableApplicationError("category collection not configured", "NotConfigured", nil)
	}
	return nonRetryableNotFound(a.categories.SetSortOrder(ctx, input.ID, input.Order))
}

// nonRetryableNotFound stops retries for ids the collection no longer has.
func nonRetryableNotFound(err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
	}
	return err
}
