package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

var (
	_ ports.ItemService[int64]  = (*Collection[int64])(nil)
	_ ports.ItemService[string] = (*Collection[string])(nil)
)

// Collection is an in-memory item service used for demos, tests and offline development.
// Writes to an id can be made to fail on purpose with FailOn.
type Collection[K comparable] struct {
	mu       sync.RWMutex
	items    map[K]domain.Item[K]
	order    []K
	assignID func(domain.Item[K]) (K, error)
	onSeed   func(K)
	now      func() time.Time
	failures map[K]error
	fetchErr error
	writes   int
}

// NewProductCollection stores products and assigns sequential ids starting at 1.
func NewProductCollection() *Collection[int64] {
	var next int64
	c := newCollection(func(domain.Item[int64]) (int64, error) {
		next++
		return next, nil
	})
	c.onSeed = func(id int64) {
		if id > next {
			next = id
		}
	}
	return c
}

// NewCategoryCollection stores categories keyed by the slug the caller supplies.
func NewCategoryCollection() *Collection[string] {
	return newCollection(func(item domain.Item[string]) (string, error) {
		if item.ID == "" {
			return "", domain.ErrEmptyCategoryID
		}
		return item.ID, nil
	})
}

func newCollection[K comparable](assign func(domain.Item[K]) (K, error)) *Collection[K] {
	return &Collection[K]{
		items:    map[K]domain.Item[K]{},
		assignID: assign,
		now:      time.Now,
		failures: map[K]error{},
	}
}

// WithClock overrides the time source for CreatedAt.
func (c *Collection[K]) WithClock(now func() time.Time) {
	if now == nil {
		return
	}
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Seed inserts items as they are, bypassing id assignment.
func (c *Collection[K]) Seed(items ...domain.Item[K]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		if _, exists := c.items[item.ID]; !exists {
			c.order = append(c.order, item.ID)
		}
		c.items[item.ID] = item
		if c.onSeed != nil {
			c.onSeed(item.ID)
		}
	}
}

// FailOn makes every write targeting id return err. A nil err clears the failure.
func (c *Collection[K]) FailOn(id K, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, id)
		return
	}
	c.failures[id] = err
}

// FailFetch makes FetchAll return err. A nil err clears the failure.
func (c *Collection[K]) FailFetch(err error) {
	c.mu.Lock()
	c.fetchErr = err
	c.mu.Unlock()
}

// Writes counts the write calls received, failed ones included.
func (c *Collection[K]) Writes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}

// FetchAll returns every item ordered by sort order, ties in insertion order.
func (c *Collection[K]) FetchAll(_ context.Context) ([]domain.Item[K], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	list := make([]domain.Item[K], 0, len(c.order))
	for _, id := range c.order {
		list = append(list, c.items[id])
	}
	domain.SortStable(list)
	return list, nil
}

// FetchOne returns a single item.
func (c *Collection[K]) FetchOne(_ context.Context, id K) (domain.Item[K], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return domain.Item[K]{}, ports.ErrNotFound
	}
	return item, nil
}

// Create stores a new item, assigning an id when the collection owns them.
func (c *Collection[K]) Create(_ context.Context, item domain.Item[K]) (domain.Item[K], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	id, err := c.assignID(item)
	if err != nil {
		return domain.Item[K]{}, err
	}
	if _, exists := c.items[id]; exists {
		return domain.Item[K]{}, ports.ErrConflict
	}
	item.ID = id
	if item.CreatedAt.IsZero() {
		item.CreatedAt = c.now()
	}
	c.items[id] = item
	c.order = append(c.order, id)
	return item, nil
}

// Update overlays a partial change.
func (c *Collection[K]) Update(_ context.Context, id K, patch domain.Patch) error {
	return c.write(id, func(item domain.Item[K]) domain.Item[K] {
		return domain.ApplyPatch(item, patch)
	})
}

// SetVisibility stores the visibility flag.
func (c *Collection[K]) SetVisibility(_ context.Context, id K, visible bool) error {
	return c.write(id, func(item domain.Item[K]) domain.Item[K] {
		item.Visible = visible
		return item
	})
}

// SetSortOrder stores a new sort order.
func (c *Collection[K]) SetSortOrder(_ context.Context, id K, order int) error {
	return c.write(id, func(item domain.Item[K]) domain.Item[K] {
		item.SortOrder = order
		return item
	})
}

// Delete removes an item.
func (c *Collection[K]) Delete(_ context.Context, id K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if err := c.failures[id]; err != nil {
		return err
	}
	if _, ok := c.items[id]; !ok {
		return ports.ErrNotFound
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Collection[K]) write(id K, mutate func(domain.Item[K]) domain.Item[K]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if err := c.failures[id]; err != nil {
		return err
	}
	item, ok := c.items[id]
	if !ok {
		return ports.ErrNotFound
	}
	c.items[id] = mutate(item)
	return nil
}

// ErrInjected is a convenience failure for FailOn in tests.
var ErrInjected = errors.New("injected collection failure")
