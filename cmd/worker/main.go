package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	catalogmemory "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/persistence/postgres"
	catalogremote "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/remote"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
	catalogactivities "github.com/chinoiserie/catalog/internal/durable/temporal/activities/catalog"
	catalogworkflows "github.com/chinoiserie/catalog/internal/durable/temporal/workflows/catalog"
	platformobservability "github.com/chinoiserie/catalog/internal/platform/observability"
	platformpostgres "github.com/chinoiserie/catalog/internal/platform/postgres"
)

func main() {
	ctx := context.Background()
	const serviceName = "catalog-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	products, categories, cleanup := buildCollectionServices(ctx, logger)
	defer cleanup()
	catalogActivities := catalogactivities.NewActivities(products, categories)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, catalogworkflows.ReorderTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(catalogworkflows.ReorderWorkflow, workflow.RegisterOptions{Name: catalogworkflows.ReorderWorkflowName})
	w.RegisterActivityWithOptions(catalogActivities.SetSortOrder, activity.RegisterOptions{Name: catalogactivities.SetSortOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", catalogworkflows.ReorderTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

// buildCollectionServices writes through the same collaborators the API reads from.
func buildCollectionServices(ctx context.Context, logger *slog.Logger) (ports.ItemService[int64], ports.ItemService[string], func()) {
	productsURL := strings.TrimSpace(os.Getenv("PRODUCTS_API_URL"))
	categoriesURL := strings.TrimSpace(os.Getenv("CATEGORIES_API_URL"))
	if productsURL != "" && categoriesURL != "" {
		products, perr := catalogremote.NewProductClient(productsURL, catalogremote.WithLogger(logger))
		categories, cerr := catalogremote.NewCategoryClient(categoriesURL, catalogremote.WithLogger(logger))
		if perr == nil && cerr == nil {
			logger.Info("worker collections served by remote functions")
			return products, categories, func() {}
		}
		logger.Warn("worker failed to configure remote functions (trying postgres)")
	}
	db, cleanup := platformpostgres.ConnectDSN(ctx, os.Getenv("POSTGRES_DSN"), logger)
	if db != nil {
		logger.Info("worker collections configured with postgres")
		return catalogpostgres.NewProductRepository(db), catalogpostgres.NewCategoryRepository(db), cleanup
	}
	logger.Warn("worker falling back to in-memory collections; an API on memory collections commits reorders inline and never reaches this worker")
	return catalogmemory.NewProductCollection(), catalogmemory.NewCategoryCollection(), func() {}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
