package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

// wireItem is the snake_case record the collection functions read and write.
// Pointer fields are omitted from request bodies when unset, which gives PUT its
// partial-update semantics.
type wireItem[K comparable] struct {
	ID          K          `json:"id,omitempty"`
	PhotoURL    *string    `json:"photo_url,omitempty"`
	MainImage   *string    `json:"main_image,omitempty"`
	Article     *string    `json:"article,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Price       *flexPrice `json:"price,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	Icon        *string    `json:"icon,omitempty"`
	IsVisible   *bool      `json:"is_visible,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty"`
	CreatedAt   *string    `json:"created_at,omitempty"`
}

// errorBody is what the functions return on any non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

// flexPrice accepts a price encoded either as a JSON number or as a decimal string.
type flexPrice float64

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*p = 0
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*p = flexPrice(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = flexPrice(v)
	return nil
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
}

func parseCreatedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (w wireItem[K]) toDomain() domain.Item[K] {
	return w.overlay(domain.Item[K]{Visible: true})
}

// overlay copies every field present in w onto item.
func (w wireItem[K]) overlay(item domain.Item[K]) domain.Item[K] {
	var zero K
	if w.ID != zero {
		item.ID = w.ID
	}
	setIfPresent(&item.Fields.PhotoURL, w.PhotoURL)
	setIfPresent(&item.Fields.MainImage, w.MainImage)
	setIfPresent(&item.Fields.Article, w.Article)
	setIfPresent(&item.Fields.Name, w.Name)
	setIfPresent(&item.Fields.Description, w.Description)
	setIfPresent(&item.Fields.Icon, w.Icon)
	setIfPresent(&item.Category, w.Category)
	setIfPresent(&item.Visible, w.IsVisible)
	setIfPresent(&item.SortOrder, w.SortOrder)
	if w.Price != nil {
		item.Fields.Price = float64(*w.Price)
	}
	if w.CreatedAt != nil {
		item.CreatedAt = parseCreatedAt(*w.CreatedAt)
	}
	return item
}

// fromItem encodes a full item for creation.
func fromItem[K comparable](item domain.Item[K]) wireItem[K] {
	w := wireItem[K]{ID: item.ID}
	f := item.Fields
	w.PhotoURL = nonEmpty(f.PhotoURL)
	w.MainImage = nonEmpty(f.MainImage)
	w.Article = nonEmpty(f.Article)
	w.Name = nonEmpty(f.Name)
	w.Description = nonEmpty(f.Description)
	w.Icon = nonEmpty(f.Icon)
	w.Price = price(f.Price)
	if item.Category != "" {
		w.Category = ptr(item.Category)
	}
	w.IsVisible = ptr(item.Visible)
	w.SortOrder = ptr(item.SortOrder)
	return w
}

// fromPatch encodes a partial update for the item with the given id.
func fromPatch[K comparable](id K, patch domain.Patch) wireItem[K] {
	w := wireItem[K]{ID: id}
	if f := patch.Fields; f != nil {
		// A field edit replaces the whole attribute set, blanks included.
		w.PhotoURL = ptr(f.PhotoURL)
		w.MainImage = ptr(f.MainImage)
		w.Article = ptr(f.Article)
		w.Name = ptr(f.Name)
		w.Description = ptr(f.Description)
		w.Icon = nonEmpty(f.Icon)
		w.Price = price(f.Price)
	}
	w.Category = patch.Category
	w.IsVisible = patch.Visible
	w.SortOrder = patch.SortOrder
	return w
}

func price(v float64) *flexPrice {
	if v <= 0 {
		return nil
	}
	p := flexPrice(v)
	return &p
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func ptr[T any](v T) *T {
	return &v
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
