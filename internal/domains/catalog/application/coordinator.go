package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

const defaultConcurrency = 8

// Rules holds the per-collection checks the coordinator runs before touching anything.
type Rules[K comparable] struct {
	// Prepare validates and normalises an item before Create.
	Prepare func(domain.Item[K]) (domain.Item[K], error)
	// CheckPatch validates a field update.
	CheckPatch func(domain.Patch) error
	// CheckDelete rejects ids that must never be deleted.
	CheckDelete func(K) error
}

// Coordinator applies mutations to the local store first, then commits them to the
// collection service, reloading from the service when any write fails.
type Coordinator[K comparable] struct {
	store       *Store[K]
	service     ports.ItemService[K]
	committer   ports.ReorderCommitter[K]
	rules       Rules[K]
	logger      *slog.Logger
	concurrency int
	guardFlight bool

	mu        sync.Mutex
	closed    bool
	inflight  map[K]struct{}
	listeners map[int]func([]domain.Item[K])
	nextSub   int
}

// Option configures a Coordinator.
type Option[K comparable] func(*Coordinator[K])

// WithLogger injects a slog logger.
func WithLogger[K comparable](logger *slog.Logger) Option[K] {
	return func(c *Coordinator[K]) {
		c.logger = logger
	}
}

// WithCommitter replaces the in-process reorder fan-out, e.g. with a durable workflow.
func WithCommitter[K comparable](committer ports.ReorderCommitter[K]) Option[K] {
	return func(c *Coordinator[K]) {
		c.committer = committer
	}
}

// WithRules installs validation for create, update and delete.
func WithRules[K comparable](rules Rules[K]) Option[K] {
	return func(c *Coordinator[K]) {
		c.rules = rules
	}
}

// WithConcurrency bounds the number of simultaneous calls in bulk and reorder commits.
func WithConcurrency[K comparable](n int) Option[K] {
	return func(c *Coordinator[K]) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithInFlightGuard rejects a mutation on an id whose previous mutation has not settled.
func WithInFlightGuard[K comparable]() Option[K] {
	return func(c *Coordinator[K]) {
		c.guardFlight = true
	}
}

// NewCoordinator wires a coordinator around the collection service.
func NewCoordinator[K comparable](service ports.ItemService[K], opts ...Option[K]) *Coordinator[K] {
	c := &Coordinator[K]{
		service:     service,
		concurrency: defaultConcurrency,
		inflight:    map[K]struct{}{},
		listeners:   map[int]func([]domain.Item[K]){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.store = NewStore[K](c.logger)
	if c.committer == nil {
		c.committer = serviceCommitter[K]{coordinator: c}
	}
	return c
}

// Hydrate replaces the collection with the service's current state.
func (c *Coordinator[K]) Hydrate(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	items, err := c.service.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: fetch all: %w", ErrCollaboratorFailure, err)
	}
	if c.isClosed() {
		return nil
	}
	c.store.Load(items)
	c.notify()
	return nil
}

// Items returns the full collection in display order.
func (c *Coordinator[K]) Items() []domain.Item[K] {
	return c.store.Items()
}

// View applies the projection pipeline to the current collection.
func (c *Coordinator[K]) View(query domain.ViewQuery) []domain.Item[K] {
	return Project(c.store.Items(), query)
}

// Subscribe registers fn to be called with the collection after every local change.
// The returned function removes the subscription.
func (c *Coordinator[K]) Subscribe(fn func([]domain.Item[K])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close tears the view down. Mutations still in flight settle without touching the store.
func (c *Coordinator[K]) Close() {
	c.mu.Lock()
	c.closed = true
	c.listeners = map[int]func([]domain.Item[K]){}
	c.mu.Unlock()
}

// Create persists a new item and appends it to the end of the collection.
// The service assigns product ids, so creation is not optimistic.
func (c *Coordinator[K]) Create(ctx context.Context, item domain.Item[K]) (domain.Item[K], error) {
	var zero domain.Item[K]
	if c.isClosed() {
		return zero, ErrClosed
	}
	if c.rules.Prepare != nil {
		prepared, err := c.rules.Prepare(item)
		if err != nil {
			return zero, mapError(err)
		}
		item = prepared
	}
	item.SortOrder = c.store.Len()
	created, err := c.service.Create(ctx, item)
	if err != nil {
		return zero, fmt.Errorf("%w: create: %w", ErrCollaboratorFailure, err)
	}
	if c.isClosed() {
		return created, nil
	}
	c.store.Append(created)
	c.notify()
	return created, nil
}

// Update applies a field patch to one item.
func (c *Coordinator[K]) Update(ctx context.Context, id K, patch domain.Patch) (ports.Outcome, error) {
	if patch.IsEmpty() {
		return ports.Outcome{State: ports.StateIdle}, fmt.Errorf("%w: empty patch", ErrInvalidInput)
	}
	if c.rules.CheckPatch != nil {
		if err := c.rules.CheckPatch(patch); err != nil {
			return ports.Outcome{State: ports.StateIdle}, mapError(err)
		}
	}
	return c.mutate(ctx, "update", []K{id},
		func(s *Store[K]) { s.ApplyLocalPatch(id, patch) },
		func(ctx context.Context, id K) error { return c.service.Update(ctx, id, patch) },
		func(ctx context.Context, before domain.Item[K]) error {
			return c.service.Update(ctx, before.ID, inversePatch(patch, before))
		},
	)
}

// SetVisibility shows or hides one item on the storefront.
func (c *Coordinator[K]) SetVisibility(ctx context.Context, id K, visible bool) (ports.Outcome, error) {
	return c.BulkSetVisibility(ctx, []K{id}, visible)
}

// SetCategory moves one item to another category.
func (c *Coordinator[K]) SetCategory(ctx context.Context, id K, category string) (ports.Outcome, error) {
	patch := domain.Patch{Category: &category}
	return c.mutate(ctx, "set_category", []K{id},
		func(s *Store[K]) { s.ApplyLocalPatch(id, patch) },
		func(ctx context.Context, id K) error { return c.service.Update(ctx, id, patch) },
		func(ctx context.Context, before domain.Item[K]) error {
			return c.service.Update(ctx, before.ID, domain.Patch{Category: &before.Category})
		},
	)
}

// Delete removes one item.
func (c *Coordinator[K]) Delete(ctx context.Context, id K) (ports.Outcome, error) {
	return c.BulkDelete(ctx, []K{id})
}

// BulkDelete removes every id; any single failure reloads the whole collection.
func (c *Coordinator[K]) BulkDelete(ctx context.Context, ids []K) (ports.Outcome, error) {
	ids = distinct(ids)
	if c.rules.CheckDelete != nil {
		for _, id := range ids {
			if err := c.rules.CheckDelete(id); err != nil {
				return ports.Outcome{State: ports.StateIdle}, mapError(err)
			}
		}
	}
	return c.mutate(ctx, "delete", ids,
		func(s *Store[K]) { s.Remove(ids...) },
		c.service.Delete,
		nil,
	)
}

// BulkSetVisibility toggles every id; any single failure reloads the whole collection.
func (c *Coordinator[K]) BulkSetVisibility(ctx context.Context, ids []K, visible bool) (ports.Outcome, error) {
	ids = distinct(ids)
	patch := domain.Patch{Visible: &visible}
	return c.mutate(ctx, "set_visibility", ids,
		func(s *Store[K]) {
			for _, id := range ids {
				s.ApplyLocalPatch(id, patch)
			}
		},
		func(ctx context.Context, id K) error { return c.service.SetVisibility(ctx, id, visible) },
		func(ctx context.Context, before domain.Item[K]) error {
			return c.service.SetVisibility(ctx, before.ID, before.Visible)
		},
	)
}

// Move drags the item at position from to position to within the full collection.
func (c *Coordinator[K]) Move(ctx context.Context, from, to int) (ports.Outcome, error) {
	ids := domain.IDs(c.store.Items())
	moved, err := MoveItem(ids, from, to)
	if err != nil {
		return ports.Outcome{State: ports.StateIdle}, err
	}
	if from == to {
		return ports.Outcome{State: ports.StateIdle}, nil
	}
	return c.Reorder(ctx, moved)
}

// Reorder makes ids the new total order and persists every item's position.
func (c *Coordinator[K]) Reorder(ctx context.Context, ids []K) (ports.Outcome, error) {
	if c.isClosed() {
		return ports.Outcome{State: ports.StateIdle}, ErrClosed
	}
	if err := c.acquire(ids); err != nil {
		return ports.Outcome{State: ports.StateIdle}, err
	}
	defer c.release(ids)

	snapshot := c.store.Snapshot()
	if err := c.store.ApplyReorder(ids); err != nil {
		return ports.Outcome{State: ports.StateIdle}, err
	}
	c.notify()
	c.logTransition(ctx, "reorder", ports.StateApplied, len(ids))

	c.logTransition(ctx, "reorder", ports.StateCommitting, len(ids))
	err := c.committer.CommitOrder(ctx, SortIntents(ids))
	return c.settle(ctx, "reorder", snapshot, len(ids), err)
}

// mutate runs one optimistic mutation over ids. When undo is set and the batch fails,
// the writes that did succeed are reverted to their snapshot values before the reload,
// so the reloaded collection shows no partial success.
func (c *Coordinator[K]) mutate(
	ctx context.Context,
	op string,
	ids []K,
	apply func(*Store[K]),
	call func(context.Context, K) error,
	undo func(context.Context, domain.Item[K]) error,
) (ports.Outcome, error) {
	if c.isClosed() {
		return ports.Outcome{State: ports.StateIdle}, ErrClosed
	}
	if len(ids) == 0 {
		return ports.Outcome{State: ports.StateIdle}, nil
	}
	if err := c.acquire(ids); err != nil {
		return ports.Outcome{State: ports.StateIdle}, err
	}
	defer c.release(ids)

	snapshot := c.store.Snapshot()
	apply(c.store)
	c.notify()
	c.logTransition(ctx, op, ports.StateApplied, len(ids))

	c.logTransition(ctx, op, ports.StateCommitting, len(ids))
	succeeded, err := c.fanOut(ctx, ids, call)
	if err != nil && undo != nil && len(succeeded) > 0 {
		if undoErr := c.compensate(ctx, snapshot, succeeded, undo); undoErr != nil {
			err = errors.Join(err, fmt.Errorf("revert: %w", undoErr))
		}
	}
	return c.settle(ctx, op, snapshot, len(ids), err)
}

func (c *Coordinator[K]) compensate(ctx context.Context, snapshot []domain.Item[K], ids []K, undo func(context.Context, domain.Item[K]) error) error {
	before := make(map[K]domain.Item[K], len(snapshot))
	for _, item := range snapshot {
		before[item.ID] = item
	}
	ctx = context.WithoutCancel(ctx)
	_, err := c.fanOut(ctx, ids, func(ctx context.Context, id K) error {
		item, ok := before[id]
		if !ok {
			return nil
		}
		return undo(ctx, item)
	})
	return err
}

// settle decides Committed vs RolledBack. On failure the collection is reloaded from the
// service; if that reload fails too, the pre-mutation snapshot is put back.
func (c *Coordinator[K]) settle(ctx context.Context, op string, snapshot []domain.Item[K], affected int, commitErr error) (ports.Outcome, error) {
	if commitErr == nil {
		c.logTransition(ctx, op, ports.StateCommitted, affected)
		return ports.Outcome{State: ports.StateCommitted, Affected: affected}, nil
	}
	failure := fmt.Errorf("%w: %s: %w", ErrCollaboratorFailure, op, commitErr)
	outcome := ports.Outcome{State: ports.StateRolledBack, Affected: affected}
	if c.isClosed() {
		c.logger.LogAttrs(ctx, slog.LevelDebug, "mutation failed after view closed", slog.String("op", op), slog.String("error", commitErr.Error()))
		return outcome, failure
	}
	fresh, err := c.service.FetchAll(context.WithoutCancel(ctx))
	if c.isClosed() {
		return outcome, failure
	}
	if err != nil {
		c.store.Restore(snapshot)
		failure = errors.Join(failure, fmt.Errorf("reload after failure: %w", err))
	} else {
		c.store.Load(fresh)
	}
	c.notify()
	c.logger.LogAttrs(ctx, slog.LevelWarn, "mutation rolled back",
		slog.String("op", op),
		slog.Int("affected", affected),
		slog.String("error", failure.Error()),
	)
	return outcome, failure
}

// fanOut issues call for every id concurrently and waits for all of them to settle.
// It returns the ids that succeeded and the joined failures.
func (c *Coordinator[K]) fanOut(ctx context.Context, ids []K, call func(context.Context, K) error) ([]K, error) {
	var (
		g         errgroup.Group
		mu        sync.Mutex
		errs      []error
		succeeded []K
	)
	g.SetLimit(c.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := call(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("item %v: %w", id, err))
				return nil
			}
			succeeded = append(succeeded, id)
			return nil
		})
	}
	_ = g.Wait()
	return succeeded, errors.Join(errs...)
}

func (c *Coordinator[K]) acquire(ids []K) error {
	if !c.guardFlight {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, busy := c.inflight[id]; busy {
			return fmt.Errorf("%w: item %v", ErrMutationInFlight, id)
		}
	}
	for _, id := range ids {
		c.inflight[id] = struct{}{}
	}
	return nil
}

func (c *Coordinator[K]) release(ids []K) {
	if !c.guardFlight {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.inflight, id)
	}
}

func (c *Coordinator[K]) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator[K]) notify() {
	c.mu.Lock()
	if c.closed || len(c.listeners) == 0 {
		c.mu.Unlock()
		return
	}
	listeners := make([]func([]domain.Item[K]), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	items := c.store.Items()
	for _, fn := range listeners {
		fn(items)
	}
}

func (c *Coordinator[K]) logTransition(ctx context.Context, op string, state ports.MutationState, affected int) {
	c.logger.LogAttrs(ctx, slog.LevelDebug, "catalog mutation",
		slog.String("op", op),
		slog.String("state", state.String()),
		slog.Int("affected", affected),
	)
}

// serviceCommitter writes sort orders straight to the service, one call per item.
type serviceCommitter[K comparable] struct {
	coordinator *Coordinator[K]
}

func (s serviceCommitter[K]) CommitOrder(ctx context.Context, intents []ports.SortIntent[K]) error {
	orders := make(map[K]int, len(intents))
	ids := make([]K, 0, len(intents))
	for _, intent := range intents {
		orders[intent.ID] = intent.Order
		ids = append(ids, intent.ID)
	}
	_, err := s.coordinator.fanOut(ctx, ids, func(ctx context.Context, id K) error {
		return s.coordinator.service.SetSortOrder(ctx, id, orders[id])
	})
	return err
}

// inversePatch restores, from before, every field that patch touches.
// distinct drops repeated ids, keeping first occurrences in order.
func distinct[K comparable](ids []K) []K {
	seen := make(map[K]struct{}, len(ids))
	out := make([]K, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func inversePatch[K comparable](patch domain.Patch, before domain.Item[K]) domain.Patch {
	var inverse domain.Patch
	if patch.Fields != nil {
		fields := before.Fields
		inverse.Fields = &fields
	}
	if patch.Category != nil {
		category := before.Category
		inverse.Category = &category
	}
	if patch.Visible != nil {
		visible := before.Visible
		inverse.Visible = &visible
	}
	if patch.SortOrder != nil {
		order := before.SortOrder
		inverse.SortOrder = &order
	}
	return inverse
}

var _ ports.Catalog[int64] = (*Coordinator[int64])(nil)
