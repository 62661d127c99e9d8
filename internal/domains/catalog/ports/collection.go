package ports

import (
	"context"
	"errors"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

var (
	ErrNotFound = errors.New("item not found")
	ErrConflict = errors.New("item already exists")
)

// ItemService is the outbound port to the remote collection that owns products or categories.
// Products are keyed by int64 ids assigned by the service, categories by string slugs.
type ItemService[K comparable] interface {
	FetchAll(ctx context.Context) ([]domain.Item[K], error)
	// FetchOne returns ErrNotFound when the id is unknown.
	FetchOne(ctx context.Context, id K) (domain.Item[K], error)
	// Create persists a new item; for products the returned item carries the assigned id.
	Create(ctx context.Context, item domain.Item[K]) (domain.Item[K], error)
	Update(ctx context.Context, id K, patch domain.Patch) error
	Delete(ctx context.Context, id K) error
	SetVisibility(ctx context.Context, id K, visible bool) error
	SetSortOrder(ctx context.Context, id K, order int) error
}
