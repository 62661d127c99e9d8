package http

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
	// Admin routes run behind the admin middleware.
	Admin bool
}

// RouterConfig carries the pieces NewRouter needs besides the handlers.
type RouterConfig struct {
	ServiceName string
	AdminToken  string
	// Middleware is appended after recovery and tracing, before routing.
	Middleware []gin.HandlerFunc
	// Unsupported names routes the configured collections cannot serve; they answer 501.
	Unsupported []string
}

// NewRouter returns a new gin engine serving the catalog API.
func NewRouter(api *CatalogAPI, cfg RouterConfig) *gin.Engine {
	return NewRouterWithGinEngine(gin.New(), api, cfg)
}

// NewRouterWithGinEngine registers the catalog routes on an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, api *CatalogAPI, cfg RouterConfig) *gin.Engine {
	router.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(cfg.Middleware...)

	admin := RequireAdmin(cfg.AdminToken, api.logger)
	for _, route := range getRoutes(api) {
		if route.HandlerFunc == nil || slices.Contains(cfg.Unsupported, route.Name) {
			route.HandlerFunc = DefaultHandleFunc
		}
		handlers := []gin.HandlerFunc{route.HandlerFunc}
		if route.Admin {
			handlers = append([]gin.HandlerFunc{admin}, handlers...)
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, handlers...)
		case http.MethodPost:
			router.POST(route.Pattern, handlers...)
		case http.MethodPut:
			router.PUT(route.Pattern, handlers...)
		case http.MethodPatch:
			router.PATCH(route.Pattern, handlers...)
		case http.MethodDelete:
			router.DELETE(route.Pattern, handlers...)
		}
	}
	return router
}

// DefaultHandleFunc answers routes without a handler.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(api *CatalogAPI) []Route {
	return []Route{
		{"ListStorefrontProducts", http.MethodGet, "/api/catalog/products", api.ListStorefrontProducts, false},
		{"ListStorefrontCategories", http.MethodGet, "/api/catalog/categories", api.ListStorefrontCategories, false},

		{"ListProducts", http.MethodGet, "/api/admin/products", api.ListProducts, true},
		{"CreateProduct", http.MethodPost, "/api/admin/products", api.CreateProduct, true},
		{"ReloadProducts", http.MethodPost, "/api/admin/products/reload", api.ReloadProducts, true},
		{"BulkDeleteProducts", http.MethodPost, "/api/admin/products/bulk/delete", api.BulkDeleteProducts, true},
		{"BulkSetProductVisibility", http.MethodPost, "/api/admin/products/bulk/visibility", api.BulkSetProductVisibility, true},
		{"MoveProduct", http.MethodPost, "/api/admin/products/move", api.MoveProduct, true},
		{"ReorderProducts", http.MethodPut, "/api/admin/products/order", api.ReorderProducts, true},
		{"UpdateProduct", http.MethodPut, "/api/admin/products/:id", api.UpdateProduct, true},
		{"SetProductVisibility", http.MethodPatch, "/api/admin/products/:id/visibility", api.SetProductVisibility, true},
		{"SetProductCategory", http.MethodPatch, "/api/admin/products/:id/category", api.SetProductCategory, true},
		{"DeleteProduct", http.MethodDelete, "/api/admin/products/:id", api.DeleteProduct, true},

		{"ListCategories", http.MethodGet, "/api/admin/categories", api.ListCategories, true},
		{"CreateCategory", http.MethodPost, "/api/admin/categories", api.CreateCategory, true},
		{"ReloadCategories", http.MethodPost, "/api/admin/categories/reload", api.ReloadCategories, true},
		{"MoveCategory", http.MethodPost, "/api/admin/categories/move", api.MoveCategory, true},
		{"ReorderCategories", http.MethodPut, "/api/admin/categories/order", api.ReorderCategories, true},
		{"UpdateCategory", http.MethodPut, "/api/admin/categories/:id", api.UpdateCategory, true},
		{"SetCategoryVisibility", http.MethodPatch, "/api/admin/categories/:id/visibility", api.SetCategoryVisibility, true},
		{"DeleteCategory", http.MethodDelete, "/api/admin/categories/:id", api.DeleteCategory, true},
	}
}
