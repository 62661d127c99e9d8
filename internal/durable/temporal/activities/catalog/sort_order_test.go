package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/chinoiserie/catalog/internal/domains/catalog/adapters/memory"
	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

func newActivityEnv(t *testing.T, activities *Activities) *testsuite.TestActivityEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(activities.SetSortOrder)
	return env
}

func requireNonRetryable(t *testing.T, err error, errType string) {
	t.Helper()
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.True(t, appErr.NonRetryable())
	require.Equal(t, errType, appErr.Type())
}

func TestSetSortOrder_WritesBothCollections(t *testing.T) {
	products := memory.NewProductCollection()
	products.Seed(domain.Item[int64]{ID: 7, SortOrder: 0})
	categories := memory.NewCategoryCollection()
	categories.Seed(domain.Item[string]{ID: "decor", SortOrder: 1})
	activities := NewActivities(products, categories)
	env := newActivityEnv(t, activities)

	_, err := env.ExecuteActivity(activities.SetSortOrder,
		SetSortOrderInput{Collection: CollectionProducts, ID: "7", Order: 4})
	require.NoError(t, err)
	_, err = env.ExecuteActivity(activities.SetSortOrder,
		SetSortOrderInput{Collection: CollectionCategories, ID: "decor", Order: 3})
	require.NoError(t, err)

	product, err := products.FetchOne(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 4, product.SortOrder)
	category, err := categories.FetchOne(context.Background(), "decor")
	require.NoError(t, err)
	require.Equal(t, 3, category.SortOrder)
}

func TestSetSortOrder_RejectsWithoutRetry(t *testing.T) {
	products := memory.NewProductCollection()
	products.Seed(domain.Item[int64]{ID: 1})
	activities := NewActivities(products, nil)

	cases := []struct {
		name    string
		input   SetSortOrderInput
		errType string
	}{
		{"unknown collection", SetSortOrderInput{Collection: "news", ID: "1"}, "UnknownCollection"},
		{"malformed product id", SetSortOrderInput{Collection: CollectionProducts, ID: "lamp"}, "InvalidID"},
		{"missing product", SetSortOrderInput{Collection: CollectionProducts, ID: "99"}, "NotFound"},
		{"categories not served", SetSortOrderInput{Collection: CollectionCategories, ID: "decor"}, "NotConfigured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newActivityEnv(t, activities)
			_, err := env.ExecuteActivity(activities.SetSortOrder, tc.input)
			requireNonRetryable(t, err, tc.errType)
		})
	}
}

func TestSetSortOrder_CollaboratorFailureStaysRetryable(t *testing.T) {
	products := memory.NewProductCollection()
	products.Seed(domain.Item[int64]{ID: 1})
	products.FailOn(1, memory.ErrInjected)
	activities := NewActivities(products, nil)
	env := newActivityEnv(t, activities)

	_, err := env.ExecuteActivity(activities.SetSortOrder, SetSortOrderInput{Collection: CollectionProducts, ID: "1", Order: 2})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		require.False(t, appErr.NonRetryable())
	}
}
