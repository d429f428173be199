package statistics

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront-core/internal/cache"
	"github.com/example/storefront-core/internal/order"
)

type TotalSales struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	CompletedOrders int64           `json:"completed_orders"`
	LastUpdate      time.Time       `json:"last_update"`
}

type DailySales struct {
	Date              string          `json:"date"`
	Sales             decimal.Decimal `json:"sales"`
	Orders            int64           `json:"orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	LastUpdate        time.Time       `json:"last_update"`
}

type TopProduct struct {
	Rank       int       `json:"rank"`
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	TotalSales int64     `json:"total_sales"`
	LastUpdate time.Time `json:"last_update"`
}

// TotalSales answers from the running cache aggregates; on a cold cache it
// recomputes from the persistent store and caches the result.
func (p *Pipeline) TotalSales(ctx context.Context) (TotalSales, error) {
	rawSales, salesFound, err := p.store.Get(ctx, cache.TotalSalesKey)
	if err != nil {
		return TotalSales{}, err
	}
	rawCount, countFound, err := p.store.Get(ctx, cache.TotalSalesCountKey)
	if err != nil {
		return TotalSales{}, err
	}

	if salesFound && countFound {
		sales, err := decimal.NewFromString(rawSales)
		if err != nil {
			return TotalSales{}, fmt.Errorf("parse total sales %q: %w", rawSales, err)
		}
		count, _ := strconv.ParseInt(rawCount, 10, 64)
		return TotalSales{
			TotalSales:      sales,
			CompletedOrders: count,
			LastUpdate:      p.readMillis(ctx, cache.TotalSalesUpdateKey),
		}, nil
	}

	log.Println("[Statistics] Total sales not cached, recomputing from the order store")
	return p.recomputeTotalSales(ctx)
}

// DailySales returns the rollup for one day (yyyyMMdd, empty = today).
func (p *Pipeline) DailySales(ctx context.Context, date string) (DailySales, error) {
	if date == "" {
		date = p.now().Format(dayLayout)
	}

	fields, err := p.store.HGetAll(ctx, cache.DailySalesKey(date))
	if err != nil {
		return DailySales{}, err
	}
	if len(fields) == 0 {
		return DailySales{Date: date, Sales: decimal.Zero, AverageOrderValue: decimal.Zero, LastUpdate: p.now()}, nil
	}

	sales := decimal.Zero
	if raw, ok := fields["sales"]; ok {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			sales = parsed
		}
	}
	orders, _ := strconv.ParseInt(fields["orders"], 10, 64)

	average := decimal.Zero
	if orders > 0 {
		average = sales.DivRound(decimal.NewFromInt(orders), 2)
	}

	return DailySales{
		Date:              date,
		Sales:             sales,
		Orders:            orders,
		AverageOrderValue: average,
		LastUpdate:        parseMillis(fields["lastUpdate"], p.now),
	}, nil
}

// DailyOrders returns the completed-order count for one day.
func (p *Pipeline) DailyOrders(ctx context.Context, date string) (int64, error) {
	if date == "" {
		date = p.now().Format(dayLayout)
	}
	raw, found, err := p.store.HGet(ctx, cache.DailySalesKey(date), "orders")
	if err != nil || !found {
		return 0, err
	}
	count, _ := strconv.ParseInt(raw, 10, 64)
	return count, nil
}

// TopProducts returns the best sellers by cumulative quantity, best first.
func (p *Pipeline) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	productIDs, err := p.store.ZRevRange(ctx, cache.ProductRankKey, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	top := make([]TopProduct, 0, len(productIDs))
	for i, productID := range productIDs {
		fields, err := p.store.HGetAll(ctx, cache.ProductSalesKey(productID))
		if err != nil {
			log.Printf("[Statistics] Failed to read sales detail for product %s: %v", productID, err)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		totalSales, _ := strconv.ParseInt(fields["totalSales"], 10, 64)
		top = append(top, TopProduct{
			Rank:       i + 1,
			ProductID:  productID,
			Name:       fields["name"],
			TotalSales: totalSales,
			LastUpdate: parseMillis(fields["lastUpdate"], p.now),
		})
	}
	return top, nil
}

// recomputeTotalSales scans completed orders page by page, sums them, and
// seeds the cache so later reads are incremental again.
func (p *Pipeline) recomputeTotalSales(ctx context.Context) (TotalSales, error) {
	const pageSize = 100

	total := decimal.Zero
	var count int64
	for page := 1; ; page++ {
		orders, err := p.orders.List(ctx, order.StatusCompleted, page, pageSize)
		if err != nil {
			return TotalSales{}, fmt.Errorf("scan completed orders: %w", err)
		}
		if len(orders) == 0 {
			break
		}
		for _, o := range orders {
			total = total.Add(o.ActualAmount)
			count++
		}
		if len(orders) < pageSize {
			break
		}
	}

	now := p.now()
	if err := p.store.Set(ctx, cache.TotalSalesKey, total.String(), 0); err != nil {
		log.Printf("[Statistics] Failed to cache recomputed total sales: %v", err)
	}
	if err := p.store.Set(ctx, cache.TotalSalesCountKey, strconv.FormatInt(count, 10), 0); err != nil {
		log.Printf("[Statistics] Failed to cache recomputed order count: %v", err)
	}
	if err := p.store.Set(ctx, cache.TotalSalesUpdateKey, strconv.FormatInt(now.UnixMilli(), 10), 0); err != nil {
		log.Printf("[Statistics] Failed to cache recompute timestamp: %v", err)
	}

	return TotalSales{TotalSales: total, CompletedOrders: count, LastUpdate: now}, nil
}

func (p *Pipeline) readMillis(ctx context.Context, key string) time.Time {
	raw, found, err := p.store.Get(ctx, key)
	if err != nil || !found {
		return p.now()
	}
	return parseMillis(raw, p.now)
}

func parseMillis(raw string, fallback func() time.Time) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback()
	}
	return time.UnixMilli(ms)
}
