package application

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

// Store holds the working copy of one collection, kept in display order.
type Store[K comparable] struct {
	mu     sync.RWMutex
	items  []domain.Item[K]
	logger *slog.Logger
}

// NewStore builds an empty store. A nil logger discards the not-found warnings.
func NewStore[K comparable](logger *slog.Logger) *Store[K] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store[K]{logger: logger}
}

// Load replaces the collection wholesale.
func (s *Store[K]) Load(items []domain.Item[K]) {
	next := cloneItems(items)
	domain.SortStable(next)
	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
}

// Items returns a copy of the collection in display order.
func (s *Store[K]) Items() []domain.Item[K] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Len reports the collection size.
func (s *Store[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Contains reports whether id is part of the collection.
func (s *Store[K]) Contains(id K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// ApplyLocalPatch overlays patch onto the item with the given id.
// Unknown ids are logged and ignored; it reports whether an item changed.
func (s *Store[K]) ApplyLocalPatch(id K, patch domain.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.Warn("local patch targets unknown item", slog.String("item.id", fmt.Sprint(id)))
		return false
	}
	s.items[idx] = domain.ApplyPatch(s.items[idx], patch)
	if patch.SortOrder != nil {
		domain.SortStable(s.items)
	}
	return true
}

// ApplyReorder assigns every item the sort order of its position in ids.
// ids must list each collection id exactly once; otherwise nothing changes.
func (s *Store[K]) ApplyReorder(ids []K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) != len(s.items) {
		return fmt.Errorf("%w: got %d ids for %d items", domain.ErrInvalidReorder, len(ids), len(s.items))
	}
	position := make(map[K]int, len(ids))
	for i, id := range ids {
		if _, dup := position[id]; dup {
			return fmt.Errorf("%w: duplicate id %v", domain.ErrInvalidReorder, id)
		}
		position[id] = i
	}
	for _, item := range s.items {
		if _, ok := position[item.ID]; !ok {
			return fmt.Errorf("%w: missing id %v", domain.ErrInvalidReorder, item.ID)
		}
	}
	for i := range s.items {
		s.items[i].SortOrder = position[s.items[i].ID]
	}
	domain.SortStable(s.items)
	return nil
}

// Remove drops the given ids and returns how many were present.
func (s *Store[K]) Remove(ids ...K) int {
	drop := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if _, ok := drop[item.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return removed
}

// Append adds an item and re-sorts the collection.
func (s *Store[K]) Append(item domain.Item[K]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	domain.SortStable(s.items)
}

// Snapshot captures the collection so it can be restored verbatim.
func (s *Store[K]) Snapshot() []domain.Item[K] {
	return s.Items()
}

// Restore puts back a snapshot taken earlier, keeping its order as is.
func (s *Store[K]) Restore(snapshot []domain.Item[K]) {
	next := cloneItems(snapshot)
	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
}

func (s *Store[K]) indexOf(id K) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems[K comparable](items []domain.Item[K]) []domain.Item[K] {
	if items == nil {
		return []domain.Item[K]{}
	}
	out := make([]domain.Item[K], len(items))
	copy(out, items)
	return out
}
