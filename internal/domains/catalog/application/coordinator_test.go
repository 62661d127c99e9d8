package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/chinoiserie/catalog/internal/domains/catalog/adapters/memory"
	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

func seededProducts() *memory.Collection[int64] {
	svc := memory.NewProductCollection()
	for i, name := range []string{"Lamp", "Vase", "Screen"} {
		item := named(int64(i+1), name, "decor")
		item.SortOrder = i
		svc.Seed(item)
	}
	return svc
}

func hydrated[K comparable](t *testing.T, c *Coordinator[K]) *Coordinator[K] {
	t.Helper()
	require.NoError(t, c.Hydrate(context.Background()))
	return c
}

func find[K comparable](t *testing.T, items []domain.Item[K], id K) domain.Item[K] {
	t.Helper()
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %v not found", id)
	return domain.Item[K]{}
}

func requireMatchesService[K comparable](t *testing.T, svc ports.ItemService[K], c *Coordinator[K]) {
	t.Helper()
	fresh, err := svc.FetchAll(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(fresh, c.Items()); diff != "" {
		t.Fatalf("local collection differs from a fresh fetch (-fetch +local):\n%s", diff)
	}
}

func TestCoordinator_MoveCommitsDenseOrder(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))

	outcome, err := c.Move(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Equal(t, ports.StateCommitted, outcome.State)
	require.Equal(t, 3, outcome.Affected)

	require.Equal(t, []int64{2, 3, 1}, domain.IDs(c.Items()))
	for i, item := range c.Items() {
		require.Equal(t, i, item.SortOrder)
	}
	require.Equal(t, 3, svc.Writes())
	requireMatchesService[int64](t, svc, c)
}

func TestCoordinator_MoveToSamePositionIsIdle(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))

	outcome, err := c.Move(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, ports.StateIdle, outcome.State)
	require.Zero(t, svc.Writes())
}

func TestCoordinator_MoveOutOfRange(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))

	_, err := c.Move(context.Background(), 0, 3)
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	require.Equal(t, []int64{1, 2, 3}, domain.IDs(c.Items()))
	require.Zero(t, svc.Writes())
}

func TestCoordinator_ReorderRejectsNonPermutation(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))

	_, err := c.Reorder(context.Background(), []int64{1, 2})
	require.ErrorIs(t, err, domain.ErrInvalidReorder)
	_, err = c.Reorder(context.Background(), []int64{1, 1, 2})
	require.ErrorIs(t, err, domain.ErrInvalidReorder)
	require.Zero(t, svc.Writes())
	require.Equal(t, []int64{1, 2, 3}, domain.IDs(c.Items()))
}

func TestCoordinator_FailedToggleMatchesFreshFetch(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	svc.FailOn(2, memory.ErrInjected)

	outcome, err := c.SetVisibility(context.Background(), 2, false)
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.ErrorIs(t, err, memory.ErrInjected)
	require.Equal(t, ports.StateRolledBack, outcome.State)

	require.True(t, find(t, c.Items(), 2).Visible)
	requireMatchesService[int64](t, svc, c)
}

func TestCoordinator_BulkVisibilityFailureRevertsWholeBatch(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	svc.FailOn(3, memory.ErrInjected)

	outcome, err := c.BulkSetVisibility(context.Background(), []int64{1, 3}, false)
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.Equal(t, ports.StateRolledBack, outcome.State)

	items := c.Items()
	require.True(t, find(t, items, 1).Visible)
	require.True(t, find(t, items, 3).Visible)
	requireMatchesService[int64](t, svc, c)
}

func TestCoordinator_FailedCategoryChangeIsReverted(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	svc.FailOn(1, memory.ErrInjected)

	_, err := c.SetCategory(context.Background(), 1, "lamps")
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.Equal(t, "decor", find(t, c.Items(), 1).Category)
}

func TestCoordinator_PartialReorderFailureReloads(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	svc.FailOn(1, memory.ErrInjected)

	outcome, err := c.Move(context.Background(), 0, 2)
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.Equal(t, ports.StateRolledBack, outcome.State)
	require.NotEqual(t, []int64{2, 3, 1}, domain.IDs(c.Items()))
	requireMatchesService[int64](t, svc, c)
}

func TestCoordinator_ReloadFailureRestoresSnapshot(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	before := c.Items()
	offline := errors.New("offline")
	svc.FailOn(2, memory.ErrInjected)
	svc.FailFetch(offline)

	_, err := c.SetVisibility(context.Background(), 2, false)
	require.ErrorIs(t, err, memory.ErrInjected)
	require.ErrorIs(t, err, offline)
	if diff := cmp.Diff(before, c.Items()); diff != "" {
		t.Fatalf("snapshot not restored (-before +after):\n%s", diff)
	}
}

func TestCoordinator_BulkDeletePartialFailureShowsServerState(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	svc.FailOn(2, memory.ErrInjected)

	outcome, err := c.BulkDelete(context.Background(), []int64{1, 2})
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.Equal(t, ports.StateRolledBack, outcome.State)
	require.Equal(t, []int64{2, 3}, domain.IDs(c.Items()))
}

func TestCoordinator_BulkOpsIgnoreRepeatedIDs(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc, WithInFlightGuard[int64]()))

	outcome, err := c.BulkSetVisibility(context.Background(), []int64{3, 3}, false)
	require.NoError(t, err)
	require.Equal(t, ports.Outcome{State: ports.StateCommitted, Affected: 1}, outcome)
	require.False(t, find(t, c.Items(), 3).Visible)

	outcome, err = c.BulkDelete(context.Background(), []int64{1, 1, 2})
	require.NoError(t, err)
	require.Equal(t, ports.Outcome{State: ports.StateCommitted, Affected: 2}, outcome)
	require.Equal(t, []int64{3}, domain.IDs(c.Items()))
	requireMatchesService[int64](t, svc, c)
}

func TestCoordinator_UpdateAppliesAndCommits(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))
	fields := domain.Fields{Name: "Floor Lamp", Article: "ART-001", Price: 120}

	outcome, err := c.Update(context.Background(), 1, domain.Patch{Fields: &fields})
	require.NoError(t, err)
	require.Equal(t, ports.StateCommitted, outcome.State)
	require.Equal(t, "Floor Lamp", find(t, c.Items(), 1).Fields.Name)
	requireMatchesService[int64](t, svc, c)
}

func TestCoordinator_UpdateRejectsInvalidInput(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))

	_, err := c.Update(context.Background(), 1, domain.Patch{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.Update(context.Background(), 1, domain.Patch{Fields: &domain.Fields{Name: "Lamp", Article: "A"}})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
	require.Zero(t, svc.Writes())
}

func TestProductCatalog_CreateAppendsWithNextSortOrder(t *testing.T) {
	svc := seededProducts()
	c := hydrated(t, NewProductCatalog(svc))

	_, err := c.Create(context.Background(), domain.Item[int64]{Fields: domain.Fields{Name: "Tea set", Article: "T-1"}})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, svc.Writes())

	created, err := c.Create(context.Background(), domain.Item[int64]{Fields: domain.Fields{Name: "Tea set", Article: "T-1", Price: 40}})
	require.NoError(t, err)
	require.Equal(t, int64(4), created.ID)
	require.Equal(t, 3, created.SortOrder)
	require.Equal(t, domain.SentinelCategory, created.Category)
	require.True(t, created.Visible)
	require.False(t, created.CreatedAt.IsZero())
	require.Equal(t, []int64{1, 2, 3, 4}, domain.IDs(c.Items()))
}

func seededCategories() *memory.Collection[string] {
	svc := memory.NewCategoryCollection()
	svc.Seed(
		domain.Item[string]{ID: domain.SentinelCategory, Visible: true, SortOrder: 0, Fields: domain.Fields{Name: "Все"}},
		domain.Item[string]{ID: "lamps", Visible: true, SortOrder: 1, Fields: domain.Fields{Name: "Лампы"}},
	)
	return svc
}

func TestCategoryCatalog_RejectsSentinelDelete(t *testing.T) {
	svc := seededCategories()
	c := hydrated(t, NewCategoryCatalog(svc))

	_, err := c.Delete(context.Background(), domain.SentinelCategory)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrSentinelCategory)

	_, err = c.BulkDelete(context.Background(), []string{"lamps", domain.SentinelCategory})
	require.ErrorIs(t, err, domain.ErrSentinelCategory)

	require.Zero(t, svc.Writes())
	require.Len(t, c.Items(), 2)
}

func TestCategoryCatalog_CreateNormalizesSlug(t *testing.T) {
	svc := seededCategories()
	c := hydrated(t, NewCategoryCatalog(svc))

	created, err := c.Create(context.Background(), domain.Item[string]{ID: "Table Lamps", Fields: domain.Fields{Name: "Настольные лампы"}})
	require.NoError(t, err)
	require.Equal(t, "tablelamps", created.ID)
	require.Equal(t, domain.DefaultCategoryIcon, created.Fields.Icon)
	require.Equal(t, 2, created.SortOrder)
	require.Equal(t, []string{domain.SentinelCategory, "lamps", "tablelamps"}, domain.IDs(c.Items()))

	_, err = c.Create(context.Background(), domain.Item[string]{ID: "lamps", Fields: domain.Fields{Name: "Again"}})
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.ErrorIs(t, err, ports.ErrConflict)
}

func TestCoordinator_HydrateFailure(t *testing.T) {
	svc := seededProducts()
	svc.FailFetch(memory.ErrInjected)
	c := NewProductCatalog(svc)

	err := c.Hydrate(context.Background())
	require.ErrorIs(t, err, ErrCollaboratorFailure)
	require.Empty(t, c.Items())
}

// gatedCollection blocks SetVisibility until the test releases it.
type gatedCollection struct {
	*memory.Collection[int64]
	entered chan int64
	release chan error
}

func newGated() *gatedCollection {
	return &gatedCollection{
		Collection: seededProducts(),
		entered:    make(chan int64, 1),
		release:    make(chan error, 1),
	}
}

func (g *gatedCollection) SetVisibility(ctx context.Context, id int64, visible bool) error {
	g.entered <- id
	if err := <-g.release; err != nil {
		return err
	}
	return g.Collection.SetVisibility(ctx, id, visible)
}

type recorder struct {
	mu    sync.Mutex
	calls [][]domain.Item[int64]
}

func (r *recorder) record(items []domain.Item[int64]) {
	r.mu.Lock()
	r.calls = append(r.calls, items)
	r.mu.Unlock()
}

func (r *recorder) snapshot() [][]domain.Item[int64] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]domain.Item[int64](nil), r.calls...)
}

type result struct {
	outcome ports.Outcome
	err     error
}

func TestCoordinator_SubscribersSeeOptimisticStateBeforeCommit(t *testing.T) {
	svc := newGated()
	c := hydrated(t, NewProductCatalog(svc))
	rec := &recorder{}
	unsubscribe := c.Subscribe(rec.record)

	done := make(chan result, 1)
	go func() {
		outcome, err := c.SetVisibility(context.Background(), 1, false)
		done <- result{outcome, err}
	}()

	require.Equal(t, int64(1), <-svc.entered)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.False(t, find(t, calls[0], 1).Visible)
	require.False(t, find(t, c.Items(), 1).Visible)

	svc.release <- nil
	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, ports.StateCommitted, res.outcome.State)

	unsubscribe()
	_, err := c.Move(context.Background(), 0, 1)
	require.NoError(t, err)
	require.Len(t, rec.snapshot(), 1)
}

func TestCoordinator_InFlightGuardRejectsOverlap(t *testing.T) {
	svc := newGated()
	c := hydrated(t, NewProductCatalog(svc, WithInFlightGuard[int64]()))

	done := make(chan result, 1)
	go func() {
		outcome, err := c.SetVisibility(context.Background(), 1, false)
		done <- result{outcome, err}
	}()
	<-svc.entered

	_, err := c.SetCategory(context.Background(), 1, "lamps")
	require.ErrorIs(t, err, ErrMutationInFlight)
	_, err = c.Reorder(context.Background(), []int64{3, 2, 1})
	require.ErrorIs(t, err, ErrMutationInFlight)

	svc.release <- nil
	require.NoError(t, (<-done).err)

	outcome, err := c.SetCategory(context.Background(), 1, "lamps")
	require.NoError(t, err)
	require.Equal(t, ports.StateCommitted, outcome.State)
}

func TestCoordinator_CloseDetachesPendingMutation(t *testing.T) {
	svc := newGated()
	c := hydrated(t, NewProductCatalog(svc))
	rec := &recorder{}
	c.Subscribe(rec.record)

	done := make(chan result, 1)
	go func() {
		outcome, err := c.SetVisibility(context.Background(), 1, false)
		done <- result{outcome, err}
	}()
	<-svc.entered
	c.Close()
	svc.release <- memory.ErrInjected

	res := <-done
	require.ErrorIs(t, res.err, ErrCollaboratorFailure)
	require.Equal(t, ports.StateRolledBack, res.outcome.State)
	require.Len(t, rec.snapshot(), 1, "no notification after close")
	require.False(t, find(t, c.Items(), 1).Visible, "store is left untouched after close")

	require.ErrorIs(t, c.Hydrate(context.Background()), ErrClosed)
	_, err := c.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestInversePatch_RestoresTouchedFieldsOnly(t *testing.T) {
	before := domain.Item[int64]{ID: 1, Category: "decor", Visible: true, SortOrder: 4}
	category := "lamps"
	inverse := inversePatch(domain.Patch{Category: &category}, before)

	require.NotNil(t, inverse.Category)
	require.Equal(t, "decor", *inverse.Category)
	require.Nil(t, inverse.Visible)
	require.Nil(t, inverse.Fields)
	require.Nil(t, inverse.SortOrder)
}
