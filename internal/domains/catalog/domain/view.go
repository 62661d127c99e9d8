package domain

// Audience selects which items a view may show.
type Audience int

const (
	// AudienceAdmin sees every item, hidden ones included.
	AudienceAdmin Audience = iota
	// AudienceStorefront sees visible items only.
	AudienceStorefront
)

// ViewQuery describes the filters a view applies on top of the collection.
type ViewQuery struct {
	Audience Audience
	// Category restricts the view; empty means SentinelCategory.
	Category string
	Search   string
	// PreviewLimit caps the unfiltered storefront preview; zero disables the cap.
	PreviewLimit int
}
