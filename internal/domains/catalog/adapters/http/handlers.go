package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chinoiserie/catalog/internal/domains/catalog/adapters/http/mapper"
	"github.com/chinoiserie/catalog/internal/domains/catalog/application"
	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
	apierrors "github.com/chinoiserie/catalog/internal/shared/errors"
)

// CatalogAPI serves the storefront and admin views over the product and category catalogs.
type CatalogAPI struct {
	products     ports.Catalog[int64]
	categories   ports.Catalog[string]
	previewLimit int
	logger       *slog.Logger
	responder    *apierrors.ChainedResponder
}

// NewCatalogAPI creates a CatalogAPI. previewLimit caps the unfiltered storefront product list.
func NewCatalogAPI(products ports.Catalog[int64], categories ports.Catalog[string], previewLimit int, logger *slog.Logger) *CatalogAPI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CatalogAPI{
		products:     products,
		categories:   categories,
		previewLimit: previewLimit,
		logger:       logger,
		responder:    apierrors.NewChainedResponder("", catalogProblem),
	}
}

// Get /api/catalog/products
// Storefront product list: visible items, optional category and search, preview cap unless all=true.
func (api *CatalogAPI) ListStorefrontProducts(c *gin.Context) {
	query := domain.ViewQuery{
		Audience:     domain.AudienceStorefront,
		Category:     strings.TrimSpace(c.Query("category")),
		Search:       c.Query("q"),
		PreviewLimit: api.previewLimit,
	}
	if isTruthy(c.Query("all")) {
		query.PreviewLimit = 0
	}
	c.JSON(http.StatusOK, mapper.FromProducts(api.products.View(query)))
}

// Get /api/catalog/categories
func (api *CatalogAPI) ListStorefrontCategories(c *gin.Context) {
	items := api.categories.View(domain.ViewQuery{Audience: domain.AudienceStorefront})
	c.JSON(http.StatusOK, mapper.FromCategories(items))
}

// Get /api/admin/products
// Admin product list: hidden items included, never capped.
func (api *CatalogAPI) ListProducts(c *gin.Context) {
	items := api.products.View(domain.ViewQuery{
		Audience: domain.AudienceAdmin,
		Category: strings.TrimSpace(c.Query("category")),
		Search:   c.Query("q"),
	})
	c.JSON(http.StatusOK, mapper.FromProducts(items))
}

// Get /api/admin/categories
func (api *CatalogAPI) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, mapper.FromCategories(api.categories.Items()))
}

// Post /api/admin/products
func (api *CatalogAPI) CreateProduct(c *gin.Context) {
	var payload mapper.ProductCreate
	if !api.bind(c, &payload) {
		return
	}
	created, err := api.products.Create(c.Request.Context(), mapper.ToNewProduct(payload))
	if err != nil {
		api.respondError(c, err)
		return
	}
	api.audit(c, "product created", slog.Int64("item.id", created.ID))
	c.JSON(http.StatusCreated, mapper.FromProduct(created))
}

// Put /api/admin/products/:id
func (api *CatalogAPI) UpdateProduct(c *gin.Context) {
	id, ok := api.productID(c)
	if !ok {
		return
	}
	var payload mapper.ProductUpdate
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.Update(c.Request.Context(), id, mapper.ToProductPatch(payload))
	api.respondOutcome(c, outcome, err)
}

// Patch /api/admin/products/:id/visibility
func (api *CatalogAPI) SetProductVisibility(c *gin.Context) {
	id, ok := api.productID(c)
	if !ok {
		return
	}
	var payload mapper.VisibilityChange
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.SetVisibility(c.Request.Context(), id, *payload.IsVisible)
	api.respondOutcome(c, outcome, err)
}

// Patch /api/admin/products/:id/category
func (api *CatalogAPI) SetProductCategory(c *gin.Context) {
	id, ok := api.productID(c)
	if !ok {
		return
	}
	var payload mapper.CategoryChange
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.SetCategory(c.Request.Context(), id, strings.TrimSpace(payload.Category))
	api.respondOutcome(c, outcome, err)
}

// Delete /api/admin/products/:id
func (api *CatalogAPI) DeleteProduct(c *gin.Context) {
	id, ok := api.productID(c)
	if !ok {
		return
	}
	outcome, err := api.products.Delete(c.Request.Context(), id)
	api.respondOutcome(c, outcome, err)
}

// Post /api/admin/products/bulk/delete
func (api *CatalogAPI) BulkDeleteProducts(c *gin.Context) {
	var payload mapper.BulkDelete[int64]
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.BulkDelete(c.Request.Context(), payload.IDs)
	api.respondOutcome(c, outcome, err)
}

// Post /api/admin/products/bulk/visibility
func (api *CatalogAPI) BulkSetProductVisibility(c *gin.Context) {
	var payload mapper.BulkVisibility[int64]
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.BulkSetVisibility(c.Request.Context(), payload.IDs, *payload.IsVisible)
	api.respondOutcome(c, outcome, err)
}

// Post /api/admin/products/move
func (api *CatalogAPI) MoveProduct(c *gin.Context) {
	var payload mapper.Move
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.Move(c.Request.Context(), *payload.From, *payload.To)
	api.respondOutcome(c, outcome, err)
}

// Put /api/admin/products/order
func (api *CatalogAPI) ReorderProducts(c *gin.Context) {
	var payload mapper.Order[int64]
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.products.Reorder(c.Request.Context(), payload.IDs)
	api.respondOutcome(c, outcome, err)
}

// Post /api/admin/products/reload
func (api *CatalogAPI) ReloadProducts(c *gin.Context) {
	if err := api.products.Hydrate(c.Request.Context()); err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromProducts(api.products.Items()))
}

// Post /api/admin/categories
func (api *CatalogAPI) CreateCategory(c *gin.Context) {
	var payload mapper.CategoryCreate
	if !api.bind(c, &payload) {
		return
	}
	created, err := api.categories.Create(c.Request.Context(), mapper.ToNewCategory(payload))
	if err != nil {
		api.respondError(c, err)
		return
	}
	api.audit(c, "category created", slog.String("item.id", created.ID))
	c.JSON(http.StatusCreated, mapper.FromCategory(created))
}

// Put /api/admin/categories/:id
func (api *CatalogAPI) UpdateCategory(c *gin.Context) {
	id := c.Param("id")
	var payload mapper.CategoryUpdate
	if !api.bind(c, &payload) {
		return
	}
	current, ok := findItem(api.categories.Items(), id)
	if !ok {
		api.responder.Respond(c, apierrors.NewNotFoundProblem("category", id))
		return
	}
	outcome, err := api.categories.Update(c.Request.Context(), id, mapper.ToCategoryPatch(payload, current))
	api.respondOutcome(c, outcome, err)
}

// Patch /api/admin/categories/:id/visibility
func (api *CatalogAPI) SetCategoryVisibility(c *gin.Context) {
	var payload mapper.VisibilityChange
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.categories.SetVisibility(c.Request.Context(), c.Param("id"), *payload.IsVisible)
	api.respondOutcome(c, outcome, err)
}

// Delete /api/admin/categories/:id
func (api *CatalogAPI) DeleteCategory(c *gin.Context) {
	outcome, err := api.categories.Delete(c.Request.Context(), c.Param("id"))
	api.respondOutcome(c, outcome, err)
}

// Post /api/admin/categories/move
func (api *CatalogAPI) MoveCategory(c *gin.Context) {
	var payload mapper.Move
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.categories.Move(c.Request.Context(), *payload.From, *payload.To)
	api.respondOutcome(c, outcome, err)
}

// Put /api/admin/categories/order
func (api *CatalogAPI) ReorderCategories(c *gin.Context) {
	var payload mapper.Order[string]
	if !api.bind(c, &payload) {
		return
	}
	outcome, err := api.categories.Reorder(c.Request.Context(), payload.IDs)
	api.respondOutcome(c, outcome, err)
}

// Post /api/admin/categories/reload
func (api *CatalogAPI) ReloadCategories(c *gin.Context) {
	if err := api.categories.Hydrate(c.Request.Context()); err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromCategories(api.categories.Items()))
}

func (api *CatalogAPI) bind(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return false
	}
	return true
}

func (api *CatalogAPI) productID(c *gin.Context) (int64, bool) {
	value := c.Param("id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		api.responder.BadRequest(c, fmt.Sprintf("invalid product id %q", value))
		return 0, false
	}
	return id, true
}

func (api *CatalogAPI) respondOutcome(c *gin.Context, outcome ports.Outcome, err error) {
	if err != nil {
		api.respondError(c, err, outcome)
		return
	}
	api.audit(c, "catalog mutation", slog.String("state", outcome.State.String()), slog.Int("affected", outcome.Affected))
	c.JSON(http.StatusOK, mapper.FromOutcome(outcome))
}

func (api *CatalogAPI) respondError(c *gin.Context, err error, outcome ...ports.Outcome) {
	if len(outcome) > 0 && outcome[0].State == ports.StateRolledBack {
		_ = c.Error(err)
		api.responder.Respond(c, api.responder.Problem(err).WithExtension("state", outcome[0].State.String()))
		return
	}
	api.responder.RespondError(c, err)
}

func (api *CatalogAPI) audit(c *gin.Context, msg string, attrs ...slog.Attr) {
	if auth, ok := application.AuthFromContext(c.Request.Context()); ok {
		attrs = append(attrs, slog.String("auth.subject", auth.Subject))
	}
	attrs = append(attrs, slog.String("route", c.FullPath()))
	api.logger.LogAttrs(c.Request.Context(), slog.LevelInfo, msg, attrs...)
}

// catalogProblem maps catalog errors onto problem details.
func catalogProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, application.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidReorder),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrSentinelCategory):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrConflict),
		errors.Is(err, application.ErrMutationInFlight):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrCollaboratorFailure):
		return apierrors.ErrBadGateway.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrClosed):
		return apierrors.ErrUnavailable.WithDetail(err.Error()), true
	default:
		return apierrors.ProblemDetail{}, false
	}
}

func findItem[K comparable](items []domain.Item[K], id K) (domain.Item[K], bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.Item[K]{}, false
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
