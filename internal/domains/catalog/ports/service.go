package ports

import (
	"context"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

// MutationState tracks where an optimistic mutation ended up.
type MutationState int

const (
	StateIdle MutationState = iota
	StateApplied
	StateCommitting
	StateCommitted
	StateRolledBack
)

func (s MutationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApplied:
		return "applied"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Outcome reports the final state of a mutation and how many items it touched.
type Outcome struct {
	State    MutationState
	Affected int
}

// Catalog is the inbound port used by views (storefront and admin) to read and mutate a collection.
type Catalog[K comparable] interface {
	Hydrate(ctx context.Context) error
	Items() []domain.Item[K]
	View(query domain.ViewQuery) []domain.Item[K]
	Create(ctx context.Context, item domain.Item[K]) (domain.Item[K], error)
	Update(ctx context.Context, id K, patch domain.Patch) (Outcome, error)
	SetVisibility(ctx context.Context, id K, visible bool) (Outcome, error)
	SetCategory(ctx context.Context, id K, category string) (Outcome, error)
	Delete(ctx context.Context, id K) (Outcome, error)
	BulkDelete(ctx context.Context, ids []K) (Outcome, error)
	BulkSetVisibility(ctx context.Context, ids []K, visible bool) (Outcome, error)
	Move(ctx context.Context, from, to int) (Outcome, error)
	Reorder(ctx context.Context, ids []K) (Outcome, error)
}
