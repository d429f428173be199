package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/cache"
	cachemocks "github.com/example/storefront-core/internal/cache/mocks"
	"github.com/example/storefront-core/internal/order"
	ordermocks "github.com/example/storefront-core/internal/order/mocks"
	"github.com/example/storefront-core/internal/product"
	productmocks "github.com/example/storefront-core/internal/product/mocks"
)

var testTime = time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T) (*Pipeline, *cachemocks.Memory, *ordermocks.Repository, *productmocks.Catalog) {
	t.Helper()
	mem := cachemocks.NewMemory()
	repo := ordermocks.NewRepository()
	catalog := productmocks.NewCatalog()
	p := NewPipeline(mem, repo, catalog)
	p.now = func() time.Time { return testTime }
	return p, mem, repo, catalog
}

func completedOrder(t *testing.T, repo *ordermocks.Repository, orderID, amount string, lines ...order.Line) *order.Order {
	t.Helper()
	completeTime := testTime
	o := &order.Order{
		OrderID:      orderID,
		UserID:       order.DefaultUserID,
		ActualAmount: decimal.RequireFromString(amount),
		Status:       order.StatusCompleted,
		CreateTime:   testTime.Add(-time.Hour),
		CompleteTime: &completeTime,
		Items:        lines,
	}
	require.NoError(t, repo.Save(context.Background(), o))
	return o
}

// ============================================
// Drain
// ============================================

func TestPipeline_DrainAggregatesCompletedOrder(t *testing.T) {
	p, _, repo, catalog := newTestPipeline(t)
	ctx := context.Background()
	catalog.Add(product.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.00")})
	o := completedOrder(t, repo, "20260107103000000001", "20.00",
		order.Line{ProductID: "p1", Quantity: 2})

	require.NoError(t, p.Enqueue(ctx, o.OrderID))
	n, err := p.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := p.TotalSales(ctx)
	require.NoError(t, err)
	assert.True(t, total.TotalSales.Equal(decimal.RequireFromString("20")), "total %s", total.TotalSales)
	assert.Equal(t, int64(1), total.CompletedOrders)

	daily, err := p.DailySales(ctx, "20260107")
	require.NoError(t, err)
	assert.True(t, daily.Sales.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, int64(1), daily.Orders)
	assert.True(t, daily.AverageOrderValue.Equal(decimal.RequireFromString("20")))

	top, err := p.TopProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "p1", top[0].ProductID)
	assert.Equal(t, "Widget", top[0].Name)
	assert.Equal(t, int64(2), top[0].TotalSales)
}

func TestPipeline_DrainIsIdempotentPerOrder(t *testing.T) {
	p, _, repo, _ := newTestPipeline(t)
	ctx := context.Background()
	o := completedOrder(t, repo, "20260107103000000001", "20.00")

	// Duplicate enqueues of the same completed order.
	require.NoError(t, p.Enqueue(ctx, o.OrderID))
	require.NoError(t, p.Enqueue(ctx, o.OrderID))

	n, err := p.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A second drain after another enqueue still counts it once.
	require.NoError(t, p.Enqueue(ctx, o.OrderID))
	n, err = p.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	total, err := p.TotalSales(ctx)
	require.NoError(t, err)
	assert.True(t, total.TotalSales.Equal(decimal.RequireFromString("20")), "total %s", total.TotalSales)
	assert.Equal(t, int64(1), total.CompletedOrders)
}

func TestPipeline_DrainSkipsNonCompletedOrders(t *testing.T) {
	p, mem, repo, _ := newTestPipeline(t)
	ctx := context.Background()
	pending := &order.Order{
		OrderID:      "20260107103000000002",
		ActualAmount: decimal.RequireFromString("5.00"),
		Status:       order.StatusPendingPayment,
		CreateTime:   testTime,
	}
	require.NoError(t, repo.Save(ctx, pending))

	require.NoError(t, p.Enqueue(ctx, pending.OrderID))
	require.NoError(t, p.Enqueue(ctx, "20260107103000000099")) // unknown id

	n, err := p.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, found, err := mem.Get(ctx, "statistics:sales:total")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPipeline_DrainHonorsBatchBound(t *testing.T) {
	p, mem, repo, _ := newTestPipeline(t)
	p.batchSize = 2
	ctx := context.Background()
	for _, id := range []string{"20260107103000000001", "20260107103000000002", "20260107103000000003"} {
		completedOrder(t, repo, id, "1.00")
		require.NoError(t, p.Enqueue(ctx, id))
	}

	n, err := p.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, mem.ListLen(cache.StatsQueueKey))

	n, err = p.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, mem.ListLen(cache.StatsQueueKey))
}

// ============================================
// Queries
// ============================================

func TestPipeline_TotalSalesColdStartRecomputes(t *testing.T) {
	p, _, repo, _ := newTestPipeline(t)
	ctx := context.Background()
	completedOrder(t, repo, "20260107103000000001", "20.00")
	completedOrder(t, repo, "20260107103000000002", "15.50")
	pending := &order.Order{
		OrderID:      "20260107103000000003",
		ActualAmount: decimal.RequireFromString("99.00"),
		Status:       order.StatusPendingPayment,
		CreateTime:   testTime,
	}
	require.NoError(t, repo.Save(ctx, pending))

	total, err := p.TotalSales(ctx)

	require.NoError(t, err)
	assert.True(t, total.TotalSales.Equal(decimal.RequireFromString("35.50")), "total %s", total.TotalSales)
	assert.Equal(t, int64(2), total.CompletedOrders)

	// The recomputed value is cached; later reads never touch the store.
	repo.ListErr = assert.AnError
	total, err = p.TotalSales(ctx)
	require.NoError(t, err)
	assert.True(t, total.TotalSales.Equal(decimal.RequireFromString("35.50")))
}

func TestPipeline_DailySalesUnknownDay(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)

	daily, err := p.DailySales(context.Background(), "19990101")

	require.NoError(t, err)
	assert.True(t, daily.Sales.IsZero())
	assert.Zero(t, daily.Orders)
	assert.True(t, daily.AverageOrderValue.IsZero())
}

func TestPipeline_TopProductsRankedByQuantity(t *testing.T) {
	p, _, repo, catalog := newTestPipeline(t)
	ctx := context.Background()
	catalog.Add(product.Product{ID: "p1", Name: "Widget"})
	catalog.Add(product.Product{ID: "p2", Name: "Gadget"})
	o := completedOrder(t, repo, "20260107103000000001", "50.00",
		order.Line{ProductID: "p1", Quantity: 3},
		order.Line{ProductID: "p2", Quantity: 5})

	require.NoError(t, p.Enqueue(ctx, o.OrderID))
	_, err := p.Drain(ctx)
	require.NoError(t, err)

	top, err := p.TopProducts(ctx, 10)

	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "p2", top[0].ProductID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, int64(5), top[0].TotalSales)
	assert.Equal(t, "p1", top[1].ProductID)
	assert.Equal(t, 2, top[1].Rank)
}

func TestPipeline_DailyOrders(t *testing.T) {
	p, _, repo, _ := newTestPipeline(t)
	ctx := context.Background()
	o := completedOrder(t, repo, "20260107103000000001", "20.00")
	require.NoError(t, p.Enqueue(ctx, o.OrderID))
	_, err := p.Drain(ctx)
	require.NoError(t, err)

	count, err := p.DailyOrders(ctx, "20260107")

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
