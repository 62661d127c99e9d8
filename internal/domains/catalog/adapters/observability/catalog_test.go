package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/chinoiserie/catalog/internal/domains/catalog/adapters/memory"
	"github.com/chinoiserie/catalog/internal/domains/catalog/application"
	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

type harness struct {
	svc     *memory.Collection[int64]
	catalog *Catalog[int64]
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
}

func newHarness(t *testing.T) harness {
	t.Helper()
	svc := memory.NewProductCollection()
	for i := int64(1); i <= 3; i++ {
		svc.Seed(domain.Item[int64]{ID: i, Visible: true, SortOrder: int(i - 1), Fields: domain.Fields{Name: "Item", Article: "A", Price: 1}})
	}
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	catalog := New[int64](application.NewProductCatalog(svc), "products",
		WithTracer[int64](tp.Tracer("test")),
		WithMeter[int64](mp.Meter("test")),
	)
	require.NoError(t, catalog.Hydrate(context.Background()))
	return harness{svc: svc, catalog: catalog, spans: spans, reader: reader}
}

func (h harness) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestCatalog_CountsCommittedMutations(t *testing.T) {
	h := newHarness(t)

	outcome, err := h.catalog.Move(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Equal(t, ports.StateCommitted, outcome.State)
	require.Equal(t, int64(1), h.counter(t, "catalog.mutations.committed"))
	require.Zero(t, h.counter(t, "catalog.mutations.rolled_back"))

	ended := h.spans.Ended()
	last := ended[len(ended)-1]
	require.Equal(t, "Catalog.move", last.Name())
	require.NotEqual(t, codes.Error, last.Status().Code)
}

func TestCatalog_RecordsRollbackOnSpanAndCounter(t *testing.T) {
	h := newHarness(t)
	h.svc.FailOn(2, memory.ErrInjected)

	outcome, err := h.catalog.BulkSetVisibility(context.Background(), []int64{1, 2}, false)
	require.ErrorIs(t, err, application.ErrCollaboratorFailure)
	require.Equal(t, ports.StateRolledBack, outcome.State)
	require.Equal(t, int64(1), h.counter(t, "catalog.mutations.rolled_back"))

	ended := h.spans.Ended()
	last := ended[len(ended)-1]
	require.Equal(t, "Catalog.bulk_set_visibility", last.Name())
	require.Equal(t, codes.Error, last.Status().Code)
}

func TestCatalog_CreatePassesThrough(t *testing.T) {
	h := newHarness(t)

	created, err := h.catalog.Create(context.Background(), domain.Item[int64]{Fields: domain.Fields{Name: "Bowl", Article: "B-1", Price: 10}})
	require.NoError(t, err)
	require.Equal(t, int64(4), created.ID)
	require.Len(t, h.catalog.Items(), 4)
	require.Equal(t, int64(1), h.counter(t, "catalog.items.created"))
}
