package ports

import "context"

// SortIntent asks the collection to store Order as the sort order of ID.
type SortIntent[K comparable] struct {
	ID    K
	Order int
}

// ReorderCommitter persists a full ordering, one write per item.
// It returns an error if any single write failed.
type ReorderCommitter[K comparable] interface {
	CommitOrder(ctx context.Context, intents []SortIntent[K]) error
}
