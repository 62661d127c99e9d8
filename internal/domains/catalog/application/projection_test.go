package application

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

func named(id int64, name, category string) domain.Item[int64] {
	return domain.Item[int64]{ID: id, Category: category, Visible: true, Fields: domain.Fields{Name: name, Article: fmt.Sprintf("ART-%03d", id)}}
}

func names(items []domain.Item[int64]) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Fields.Name)
	}
	return out
}

func TestFilterByCategory_ReturnsOnlyMatchingItem(t *testing.T) {
	items := []domain.Item[int64]{named(1, "Chair", "A"), named(2, "Stool", "A"), named(3, "Cabinet", "B")}
	got := FilterByCategory(items, "B")
	require.Len(t, got, 1)
	require.Equal(t, int64(3), got[0].ID)
	require.Equal(t, items, FilterByCategory(items, domain.SentinelCategory))
}

func TestFilterBySearch_PreservesOriginalOrder(t *testing.T) {
	items := []domain.Item[int64]{named(1, "Table Lamp", "lamps"), named(2, "Sofa", "sofas"), named(3, "Desk Lamp", "lamps")}
	got := FilterBySearch(items, "lamp")
	if diff := cmp.Diff([]string{"Table Lamp", "Desk Lamp"}, names(got)); diff != "" {
		t.Fatalf("search result mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterBySearch_MatchesArticleAndFoldsCase(t *testing.T) {
	items := []domain.Item[int64]{named(1, "Ширма лаковая", "screens"), named(2, "Vase", "vases")}
	require.Equal(t, []int64{1}, domain.IDs(FilterBySearch(items, "ШИРМА")))
	require.Equal(t, []int64{2}, domain.IDs(FilterBySearch(items, "art-002")))
	require.Equal(t, items, FilterBySearch(items, "   "))
}

func TestFilterPipeline_IsOrderPreservingSubsequence(t *testing.T) {
	var items []domain.Item[int64]
	categories := []string{"A", "B", "C"}
	for i := int64(1); i <= 30; i++ {
		items = append(items, named(i, fmt.Sprintf("Item %d lamp%d", i, i%4), categories[i%3]))
	}
	for _, cat := range append(categories, domain.SentinelCategory, "missing") {
		for _, q := range []string{"", "lamp1", "ITEM 2", "nothing"} {
			got := FilterBySearch(FilterByCategory(items, cat), q)
			last := -1
			for _, item := range got {
				idx := indexOfID(items, item.ID)
				require.Greater(t, idx, last, "category=%s query=%q", cat, q)
				last = idx
			}
			again := FilterBySearch(FilterByCategory(got, cat), q)
			require.Equal(t, got, again, "filtering must be idempotent")
		}
	}
}

func TestProject_CategoryBeforeSearchBeforeCap(t *testing.T) {
	items := []domain.Item[int64]{
		named(1, "Table Lamp", "lamps"),
		named(2, "Lamp Table", "tables"),
		named(3, "Desk Lamp", "lamps"),
		named(4, "Sofa", "sofas"),
	}
	got := Project(items, domain.ViewQuery{Category: "tables", Search: "lamp", PreviewLimit: 1})
	require.Equal(t, []int64{2}, domain.IDs(got))

	preview := Project(items, domain.ViewQuery{PreviewLimit: 2})
	require.Equal(t, []int64{1, 2}, domain.IDs(preview))

	searched := Project(items, domain.ViewQuery{Search: "lamp", PreviewLimit: 1})
	require.Equal(t, []int64{1, 2, 3}, domain.IDs(searched), "cap is disabled while searching")

	category := Project(items, domain.ViewQuery{Category: "lamps", PreviewLimit: 1})
	require.Equal(t, []int64{1, 3}, domain.IDs(category), "cap is disabled for a specific category")
}

func TestProject_ReversedCompositionIsDetectable(t *testing.T) {
	items := []domain.Item[int64]{named(1, "Sofa A", "sofas"), named(2, "Sofa B", "chairs"), named(3, "Sofa C", "sofas")}
	fixed := Project(items, domain.ViewQuery{Category: "sofas", Search: "sofa", PreviewLimit: 1})
	reversed := PaginateHead(FilterByCategory(FilterBySearch(PaginateHead(items, 1), "sofa"), "sofas"), 1)
	require.Equal(t, []int64{1, 3}, domain.IDs(fixed))
	require.NotEqual(t, domain.IDs(fixed), domain.IDs(reversed))
}

func TestProject_StorefrontHidesInvisibleItems(t *testing.T) {
	hidden := named(2, "Hidden Vase", "vases")
	hidden.Visible = false
	items := []domain.Item[int64]{named(1, "Vase", "vases"), hidden}

	require.Equal(t, []int64{1}, domain.IDs(Project(items, domain.ViewQuery{Audience: domain.AudienceStorefront})))
	require.Equal(t, []int64{1, 2}, domain.IDs(Project(items, domain.ViewQuery{Audience: domain.AudienceAdmin})))
}

func TestPaginateHead(t *testing.T) {
	items := []domain.Item[int64]{named(1, "a", ""), named(2, "b", ""), named(3, "c", "")}
	require.Equal(t, []int64{1, 2}, domain.IDs(PaginateHead(items, 2)))
	require.Equal(t, items, PaginateHead(items, 0))
	require.Equal(t, items, PaginateHead(items, 10))
}

func indexOfID(items []domain.Item[int64], id int64) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
