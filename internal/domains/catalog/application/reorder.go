package application

import (
	"fmt"
	"slices"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

// MoveItem removes the id at from and reinserts it at to. The input slice is never modified.
func MoveItem[K comparable](ids []K, from, to int) ([]K, error) {
	n := len(ids)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d over %d items", domain.ErrIndexOutOfRange, from, to, n)
	}
	out := make([]K, 0, n)
	out = append(out, ids...)
	if from == to {
		return out, nil
	}
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, moved), nil
}

// SortIntents emits one sort-order write per id, its position becoming its order.
func SortIntents[K comparable](ids []K) []ports.SortIntent[K] {
	intents := make([]ports.SortIntent[K], 0, len(ids))
	for i, id := range ids {
		intents = append(intents, ports.SortIntent[K]{ID: id, Order: i})
	}
	return intents
}
