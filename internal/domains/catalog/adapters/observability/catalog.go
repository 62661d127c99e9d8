package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

const tracerName = "github.com/chinoiserie/catalog/internal/domains/catalog/adapters/observability"

// Catalog decorates a catalog port with tracing, logging, and metrics.
type Catalog[K comparable] struct {
	inner      ports.Catalog[K]
	collection string
	tracer     trace.Tracer
	logger     *slog.Logger
	metrics    catalogMetrics
}

type Option[K comparable] func(*Catalog[K])

// WithLogger injects a slog logger.
func WithLogger[K comparable](logger *slog.Logger) Option[K] {
	return func(c *Catalog[K]) {
		c.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer[K comparable](tr trace.Tracer) Option[K] {
	return func(c *Catalog[K]) {
		c.tracer = tr
	}
}

// WithMeter injects the meter used to create the mutation counters.
func WithMeter[K comparable](m metric.Meter) Option[K] {
	return func(c *Catalog[K]) {
		c.metrics = newCatalogMetrics(m)
	}
}

// New wires a decorator around a coordinator. collection names the span and metric attribute
// ("products" or "categories").
func New[K comparable](inner ports.Catalog[K], collection string, opts ...Option[K]) *Catalog[K] {
	c := &Catalog[K]{
		inner:      inner,
		collection: collection,
		tracer:     nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:     defaultLogger(),
		metrics:    newCatalogMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.tracer == nil {
		c.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if c.logger == nil {
		c.logger = defaultLogger()
	}
	return c
}

// Hydrate loads the collection from the service.
func (c *Catalog[K]) Hydrate(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "Catalog.Hydrate")
	defer span.End()

	if err := c.inner.Hydrate(ctx); err != nil {
		return c.handleError(ctx, span, err, "failed to hydrate catalog")
	}
	count := len(c.inner.Items())
	span.SetAttributes(attribute.Int("catalog.items", count))
	c.logInfo(ctx, "catalog hydrated", slog.Int("count", count))
	return nil
}

// Items returns the full collection.
func (c *Catalog[K]) Items() []domain.Item[K] {
	return c.inner.Items()
}

// View returns the projected collection.
func (c *Catalog[K]) View(query domain.ViewQuery) []domain.Item[K] {
	return c.inner.View(query)
}

// Create persists a new item.
func (c *Catalog[K]) Create(ctx context.Context, item domain.Item[K]) (domain.Item[K], error) {
	ctx, span := c.startSpan(ctx, "Catalog.Create")
	defer span.End()

	created, err := c.inner.Create(ctx, item)
	if err != nil {
		return created, c.handleError(ctx, span, err, "failed to create item")
	}
	c.metrics.recordCreated(ctx, c.collection)
	span.SetAttributes(attribute.String("item.id", fmt.Sprint(created.ID)))
	c.logInfo(ctx, "item created", slog.String("item.id", fmt.Sprint(created.ID)))
	return created, nil
}

// Update edits an item's fields.
func (c *Catalog[K]) Update(ctx context.Context, id K, patch domain.Patch) (ports.Outcome, error) {
	return c.observe(ctx, "update", []K{id}, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.Update(ctx, id, patch)
	})
}

// SetVisibility shows or hides one item.
func (c *Catalog[K]) SetVisibility(ctx context.Context, id K, visible bool) (ports.Outcome, error) {
	return c.observe(ctx, "set_visibility", []K{id}, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.SetVisibility(ctx, id, visible)
	}, attribute.Bool("item.visible", visible))
}

// SetCategory moves one item to a category.
func (c *Catalog[K]) SetCategory(ctx context.Context, id K, category string) (ports.Outcome, error) {
	return c.observe(ctx, "set_category", []K{id}, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.SetCategory(ctx, id, category)
	}, attribute.String("item.category", category))
}

// Delete removes one item.
func (c *Catalog[K]) Delete(ctx context.Context, id K) (ports.Outcome, error) {
	return c.observe(ctx, "delete", []K{id}, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.Delete(ctx, id)
	})
}

// BulkDelete removes several items.
func (c *Catalog[K]) BulkDelete(ctx context.Context, ids []K) (ports.Outcome, error) {
	return c.observe(ctx, "bulk_delete", ids, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.BulkDelete(ctx, ids)
	})
}

// BulkSetVisibility toggles several items.
func (c *Catalog[K]) BulkSetVisibility(ctx context.Context, ids []K, visible bool) (ports.Outcome, error) {
	return c.observe(ctx, "bulk_set_visibility", ids, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.BulkSetVisibility(ctx, ids, visible)
	}, attribute.Bool("item.visible", visible))
}

// Move drags an item to a new position.
func (c *Catalog[K]) Move(ctx context.Context, from, to int) (ports.Outcome, error) {
	return c.observe(ctx, "move", nil, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.Move(ctx, from, to)
	}, attribute.Int("move.from", from), attribute.Int("move.to", to))
}

// Reorder replaces the whole order.
func (c *Catalog[K]) Reorder(ctx context.Context, ids []K) (ports.Outcome, error) {
	return c.observe(ctx, "reorder", ids, func(ctx context.Context) (ports.Outcome, error) {
		return c.inner.Reorder(ctx, ids)
	})
}

func (c *Catalog[K]) observe(
	ctx context.Context,
	op string,
	ids []K,
	run func(context.Context) (ports.Outcome, error),
	attrs ...attribute.KeyValue,
) (ports.Outcome, error) {
	attrs = append(attrs, attribute.String("catalog.op", op), attribute.Int("catalog.ids", len(ids)))
	ctx, span := c.startSpan(ctx, "Catalog."+op, attrs...)
	defer span.End()

	outcome, err := run(ctx)
	span.SetAttributes(
		attribute.String("catalog.outcome", outcome.State.String()),
		attribute.Int("catalog.affected", outcome.Affected),
	)
	c.metrics.recordOutcome(ctx, c.collection, op, outcome.State)
	if err != nil {
		return outcome, c.handleError(ctx, span, err, "catalog mutation failed",
			slog.String("op", op),
			slog.String("state", outcome.State.String()),
		)
	}
	c.logInfo(ctx, "catalog mutation settled",
		slog.String("op", op),
		slog.String("state", outcome.State.String()),
		slog.Int("affected", outcome.Affected),
	)
	return outcome, nil
}

func (c *Catalog[K]) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("catalog.collection", c.collection))
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (c *Catalog[K]) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("collection", c.collection))
	c.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (c *Catalog[K]) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("collection", c.collection), slog.String("error", err.Error()))
	c.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type catalogMetrics struct {
	created    metric.Int64Counter
	committed  metric.Int64Counter
	rolledBack metric.Int64Counter
}

func newCatalogMetrics(m metric.Meter) catalogMetrics {
	if m == nil {
		return catalogMetrics{}
	}
	created, _ := m.Int64Counter("catalog.items.created", metric.WithDescription("Number of catalog items created"))
	committed, _ := m.Int64Counter("catalog.mutations.committed", metric.WithDescription("Optimistic mutations confirmed by the collection service"))
	rolledBack, _ := m.Int64Counter("catalog.mutations.rolled_back", metric.WithDescription("Optimistic mutations reverted by reloading the collection"))
	return catalogMetrics{created: created, committed: committed, rolledBack: rolledBack}
}

func (m catalogMetrics) recordCreated(ctx context.Context, collection string) {
	addCounter(ctx, m.created, 1, attribute.String("catalog.collection", collection))
}

func (m catalogMetrics) recordOutcome(ctx context.Context, collection, op string, state ports.MutationState) {
	attrs := []attribute.KeyValue{
		attribute.String("catalog.collection", collection),
		attribute.String("catalog.op", op),
	}
	switch state {
	case ports.StateCommitted:
		addCounter(ctx, m.committed, 1, attrs...)
	case ports.StateRolledBack:
		addCounter(ctx, m.rolledBack, 1, attrs...)
	}
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Catalog[int64] = (*Catalog[int64])(nil)
