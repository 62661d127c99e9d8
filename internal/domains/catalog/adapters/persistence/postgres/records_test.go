package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

func TestProductRecord_NullColumnsFallBack(t *testing.T) {
	created := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	record := productRecord{ID: 7, Article: "A-7", Name: "Bowl", Price: 12.5, CreatedAt: created}

	want := domain.Item[int64]{
		ID:        7,
		Fields:    domain.Fields{Name: "Bowl", Article: "A-7", Price: 12.5},
		Category:  domain.SentinelCategory,
		Visible:   true,
		CreatedAt: created,
	}
	if diff := cmp.Diff(want, record.toDomain()); diff != "" {
		t.Fatalf("unexpected item (-want +got):\n%s", diff)
	}
}

func TestProductRecord_RoundTripKeepsHiddenAndOrder(t *testing.T) {
	item := domain.Item[int64]{
		Fields:    domain.Fields{Name: "Lamp", Article: "L", Price: 3, PhotoURL: "https://img/lamp.png"},
		Category:  "lighting",
		Visible:   false,
		SortOrder: 4,
	}
	record := newProductRecord(item)
	require.Nil(t, record.Description)
	require.NotNil(t, record.PhotoURL)

	got := record.toDomain()
	require.False(t, got.Visible)
	require.Equal(t, 4, got.SortOrder)
	require.Equal(t, "lighting", got.Category)
	require.Equal(t, "https://img/lamp.png", got.Fields.PhotoURL)
}

func TestCategoryRecord_DefaultIcon(t *testing.T) {
	got := categoryRecord{ID: "decor", Name: "Decor"}.toDomain()
	require.Equal(t, domain.DefaultCategoryIcon, got.Fields.Icon)
	require.True(t, got.Visible)
}

func TestProductColumns(t *testing.T) {
	visible := false
	order := 2
	category := "decor"
	fields := domain.Fields{Name: "Vase", Article: "V", Price: 10}

	columns := productColumns(domain.Patch{Fields: &fields, Category: &category, Visible: &visible, SortOrder: &order})
	require.Equal(t, "Vase", columns["name"])
	require.Equal(t, "decor", columns["category"])
	require.Equal(t, false, columns["is_visible"])
	require.Equal(t, 2, columns["sort_order"])
	require.Contains(t, columns, "description")

	require.Equal(t, map[string]any{"sort_order": 2}, productColumns(domain.Patch{SortOrder: &order}))
}

func TestCategoryColumns_KeepIconWhenBlank(t *testing.T) {
	fields := domain.Fields{Name: "Decor"}
	columns := categoryColumns(domain.Patch{Fields: &fields})
	require.Equal(t, map[string]any{"name": "Decor"}, columns)
}

func TestTranslate(t *testing.T) {
	dup := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	err := translate(dup)
	require.ErrorIs(t, err, ports.ErrConflict)
	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))

	other := errors.New("connection reset")
	require.Equal(t, other, translate(other))
}

func TestRepositoriesRequireDB(t *testing.T) {
	_, err := NewProductRepository(nil).FetchAll(t.Context())
	require.Error(t, err)
	require.Error(t, NewCategoryRepository(nil).Delete(t.Context(), "decor"))
}
