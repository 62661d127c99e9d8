package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	catalogobs "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/observability"
	catalogmemory "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/persistence/postgres"
	catalogremote "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/remote"
	catalogworkflows "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/workflows"
	cataloghttp "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/http"
	catalogapp "github.com/chinoiserie/catalog/internal/domains/catalog/application"
	catalogdomain "github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	catalogports "github.com/chinoiserie/catalog/internal/domains/catalog/ports"
	"github.com/chinoiserie/catalog/internal/platform/migrations"
	platformobservability "github.com/chinoiserie/catalog/internal/platform/observability"
	platformpostgres "github.com/chinoiserie/catalog/internal/platform/postgres"
)

const serviceName = "catalog-api"

// Run boots the catalog BFF with observability, collection services, and reorder workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	services, cleanupServices := buildCollectionServices(ctx, cfg, logger)
	defer cleanupServices()

	productOpts := []catalogapp.Option[int64]{
		catalogapp.WithLogger[int64](logger),
		catalogapp.WithConcurrency[int64](cfg.Concurrency),
		catalogapp.WithInFlightGuard[int64](),
	}
	categoryOpts := []catalogapp.Option[string]{
		catalogapp.WithLogger[string](logger),
		catalogapp.WithConcurrency[string](cfg.Concurrency),
		catalogapp.WithInFlightGuard[string](),
	}
	var starter catalogworkflows.WorkflowStarter
	if !services.shared {
		logger.Info("in-memory collections are private to this process, committing reorders inline")
	} else if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, committing reorders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		starter = temporalClient
		logger.Info("Temporal reorder workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}
	productCommitter, categoryCommitter := reorderCommitters(services, starter)
	productOpts = append(productOpts, catalogapp.WithCommitter[int64](productCommitter))
	categoryOpts = append(categoryOpts, catalogapp.WithCommitter[string](categoryCommitter))

	productCore := catalogapp.NewProductCatalog(services.products, productOpts...)
	categoryCore := catalogapp.NewCategoryCatalog(services.categories, categoryOpts...)
	defer productCore.Close()
	defer categoryCore.Close()

	products := catalogobs.New[int64](productCore, "products",
		catalogobs.WithLogger[int64](logger),
		catalogobs.WithTracer[int64](instruments.Tracer("internal.catalog.products")),
		catalogobs.WithMeter[int64](instruments.Meter("internal.catalog.products")),
	)
	categories := catalogobs.New[string](categoryCore, "categories",
		catalogobs.WithLogger[string](logger),
		catalogobs.WithTracer[string](instruments.Tracer("internal.catalog.categories")),
		catalogobs.WithMeter[string](instruments.Meter("internal.catalog.categories")),
	)
	hydrate(ctx, logger, "products", products.Hydrate)
	hydrate(ctx, logger, "categories", categories.Hydrate)

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin routes will reject every request")
	}
	api := cataloghttp.NewCatalogAPI(products, categories, cfg.PreviewLimit, logger)
	router := cataloghttp.NewRouter(api, cataloghttp.RouterConfig{
		ServiceName: serviceName,
		AdminToken:  cfg.AdminToken,
		Unsupported: services.unsupported,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("catalog API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("catalog API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("catalog API shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

// hydrate performs the initial load. A failure is logged and left for the admin reload route.
func hydrate(ctx context.Context, logger *slog.Logger, collection string, load func(context.Context) error) {
	if err := load(ctx); err != nil {
		logger.Warn("initial catalog load failed", slog.String("collection", collection), slog.String("error", err.Error()))
	}
}

type collectionServices struct {
	products   catalogports.ItemService[int64]
	categories catalogports.ItemService[string]

	// shared is set when the reorder worker can reach the same collections (remote or postgres).
	shared bool

	// unsupported lists admin routes the collaborator cannot serve.
	unsupported []string
}

// reorderCommitters sends reorders through Temporal when a starter is available and the worker
// writes to the same collections; otherwise every sort order is written inline.
func reorderCommitters(services collectionServices, starter catalogworkflows.WorkflowStarter) (catalogports.ReorderCommitter[int64], catalogports.ReorderCommitter[string]) {
	inlineProducts := catalogworkflows.NewInlineReorderCommitter(services.products)
	inlineCategories := catalogworkflows.NewInlineReorderCommitter(services.categories)
	if starter == nil || !services.shared {
		return inlineProducts, inlineCategories
	}
	return catalogworkflows.NewTemporalProductCommitter(starter).WithFallback(inlineProducts),
		catalogworkflows.NewTemporalCategoryCommitter(starter).WithFallback(inlineCategories)
}

// buildCollectionServices picks the collaborators: the remote functions, then the database,
// then an in-memory collection.
func buildCollectionServices(ctx context.Context, cfg Config, logger *slog.Logger) (collectionServices, func()) {
	if cfg.RemoteConfigured() {
		opts := []catalogremote.Option{
			catalogremote.WithLogger(logger),
			catalogremote.WithTimeout(cfg.RemoteTimeout),
		}
		products, perr := catalogremote.NewProductClient(cfg.ProductsAPIURL, opts...)
		categories, cerr := catalogremote.NewCategoryClient(cfg.CategoriesAPIURL, opts...)
		if err := errors.Join(perr, cerr); err != nil {
			logger.Warn("failed to configure remote collection functions, trying postgres", slog.String("error", err.Error()))
		} else {
			logger.Info("catalog collections served by remote functions")
			// The categories function stores no visibility flag and rejects updates that carry only is_visible.
			return collectionServices{
				products:    products,
				categories:  categories,
				shared:      true,
				unsupported: []string{"SetCategoryVisibility"},
			}, func() {}
		}
	} else {
		logger.Warn("PRODUCTS_API_URL or CATEGORIES_API_URL not set, trying postgres")
	}

	db, cleanup := platformpostgres.ConnectDSN(ctx, cfg.PostgresDSN, logger)
	if db != nil {
		if err := migrations.Run(db); err != nil {
			logger.Warn("catalog migrations failed, falling back to memory", slog.String("error", err.Error()))
			cleanup()
		} else {
			logger.Info("catalog collections configured with postgres")
			return collectionServices{
				products:   catalogpostgres.NewProductRepository(db),
				categories: catalogpostgres.NewCategoryRepository(db),
				shared:     true,
			}, cleanup
		}
	}

	logger.Warn("falling back to in-memory catalog collections")
	categories := catalogmemory.NewCategoryCollection()
	categories.Seed(catalogdomain.Item[string]{
		ID:      catalogdomain.SentinelCategory,
		Fields:  catalogdomain.Fields{Name: "Все", Icon: catalogdomain.DefaultCategoryIcon},
		Visible: true,
	})
	return collectionServices{
		products:   catalogmemory.NewProductCollection(),
		categories: categories,
	}, func() {}
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
