//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Two contracts are kept: the catalog API consuming the products function, and the
// storefront consuming the catalog API.
const (
	CatalogAPIName       = "catalog-api"
	ProductsFunctionName = "products-function"
	StorefrontName       = "storefront-web"

	StateProductsBaseline = "products 101 and 102 exist"
	StateProductMissing   = "no product with id 404"
	StateProductExists    = "product with id 101 exists"
	StateCatalogSeeded    = "catalog seeded with decor products"
)

const (
	ExistingProductID int64 = 101
	SecondProductID   int64 = 102
	MissingProductID  int64 = 404

	DecorCategory = "decor"
)

const (
	examplePhotoURL  = "https://example.pact/products/lamp.png"
	exampleCreatedAt = "2024-06-12T10:00:00.123456+00:00"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for a consumer/provider pair.
func PactFile(t testing.TB, consumer, provider string) string {
	t.Helper()
	return filepath.Join(PactDir(t), consumer+"-"+provider+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleProductRecord is a products function record as stored by the functions:
// the price arrives as a decimal string.
func ExampleProductRecord(id int64) map[string]any {
	return map[string]any{
		"id":          id,
		"photo_url":   examplePhotoURL,
		"article":     "LMP-101",
		"name":        "Porcelain Lamp",
		"price":       "1299.00",
		"category":    DecorCategory,
		"description": "Hand painted",
		"is_visible":  true,
		"sort_order":  0,
		"created_at":  exampleCreatedAt,
	}
}

// ExampleStorefrontProduct is the BFF representation the storefront reads.
func ExampleStorefrontProduct() map[string]any {
	return map[string]any{
		"id":         ExistingProductID,
		"article":    "LMP-101",
		"name":       "Porcelain Lamp",
		"price":      1299.0,
		"category":   DecorCategory,
		"is_visible": true,
		"sort_order": 0,
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
