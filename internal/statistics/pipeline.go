// Package statistics aggregates completed orders into running totals, daily
// rollups, and a per-product sales ranking. Ingestion is a durable cache
// queue drained on a fixed interval; a per-day dedup set makes the
// aggregation idempotent per order.
package statistics

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/example/storefront-core/internal/cache"
	"github.com/example/storefront-core/internal/order"
	"github.com/example/storefront-core/internal/product"
)

const (
	// DefaultBatchSize bounds how many queued orders one drain may process.
	DefaultBatchSize = 1000
	// DefaultDrainInterval is the poll period of the background consumer.
	DefaultDrainInterval = 20 * time.Second

	dayLayout = "20060102"
)

type Pipeline struct {
	store     cache.Store
	orders    order.Repository
	products  product.Lookup
	batchSize int
	now       func() time.Time
}

func NewPipeline(store cache.Store, orders order.Repository, products product.Lookup) *Pipeline {
	return &Pipeline{
		store:     store,
		orders:    orders,
		products:  products,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
}

// Enqueue appends an order id to the work queue.
func (p *Pipeline) Enqueue(ctx context.Context, orderID string) error {
	return p.store.LPush(ctx, cache.StatsQueueKey, orderID)
}

// Run drains the queue on a fixed interval until the context is cancelled.
// Drains never overlap; each tick waits for the previous drain to finish.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Statistics] Consumer started, draining every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Statistics] Consumer stopped")
			return
		case <-ticker.C:
			if n, err := p.Drain(ctx); err != nil {
				log.Printf("[Statistics] Drain failed: %v", err)
			} else if n > 0 {
				log.Printf("[Statistics] Processed %d orders", n)
			}
		}
	}
}

// Drain pops queued order ids up to the batch bound and folds each into the
// aggregates. Per-item problems are logged and skipped so one bad record
// never blocks the batch; only a queue failure aborts the drain.
func (p *Pipeline) Drain(ctx context.Context) (int, error) {
	today := p.now().Format(dayLayout)
	dedupKey := cache.ProcessedOrdersKey(today)
	processed := 0

	for i := 0; i < p.batchSize; i++ {
		orderID, found, err := p.store.RPop(ctx, cache.StatsQueueKey)
		if err != nil {
			return processed, err
		}
		if !found {
			break
		}

		seen, err := p.store.SIsMember(ctx, dedupKey, orderID)
		if err != nil {
			log.Printf("[Statistics] Dedup check failed for order %s: %v", orderID, err)
			continue
		}
		if seen {
			continue
		}

		o, err := p.orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				log.Printf("[Statistics] Order %s not found, skipping", orderID)
			} else {
				log.Printf("[Statistics] Failed to fetch order %s, skipping: %v", orderID, err)
			}
			continue
		}
		if o.Status != order.StatusCompleted {
			log.Printf("[Statistics] Order %s is %s, not completed, skipping", orderID, o.Status)
			continue
		}

		p.applyTotalSales(ctx, o)
		p.applyDailySales(ctx, o)
		p.applyProductSales(ctx, o)

		if err := p.store.SAdd(ctx, dedupKey, orderID); err != nil {
			log.Printf("[Statistics] Failed to mark order %s processed: %v", orderID, err)
		} else if err := p.store.Expire(ctx, dedupKey, cache.DedupTTL); err != nil {
			log.Printf("[Statistics] Failed to expire dedup set %s: %v", dedupKey, err)
		}
		processed++
	}
	return processed, nil
}

func (p *Pipeline) applyTotalSales(ctx context.Context, o *order.Order) {
	if _, err := p.store.IncrByFloat(ctx, cache.TotalSalesKey, o.ActualAmount.InexactFloat64()); err != nil {
		log.Printf("[Statistics] Failed to update total sales for order %s: %v", o.OrderID, err)
		return
	}
	if _, err := p.store.Incr(ctx, cache.TotalSalesCountKey); err != nil {
		log.Printf("[Statistics] Failed to update completed-order count: %v", err)
	}
	if err := p.store.Set(ctx, cache.TotalSalesUpdateKey, p.millis(), 0); err != nil {
		log.Printf("[Statistics] Failed to update total-sales timestamp: %v", err)
	}
}

func (p *Pipeline) applyDailySales(ctx context.Context, o *order.Order) {
	// Orders are bucketed by completion date, not creation date.
	day := p.now().Format(dayLayout)
	if o.CompleteTime != nil {
		day = o.CompleteTime.Format(dayLayout)
	}
	key := cache.DailySalesKey(day)

	if _, err := p.store.HIncrByFloat(ctx, key, "sales", o.ActualAmount.InexactFloat64()); err != nil {
		log.Printf("[Statistics] Failed to update daily sales for order %s: %v", o.OrderID, err)
		return
	}
	if _, err := p.store.HIncrBy(ctx, key, "orders", 1); err != nil {
		log.Printf("[Statistics] Failed to update daily order count for %s: %v", day, err)
	}
	if err := p.store.HSet(ctx, key, "lastUpdate", p.millis()); err != nil {
		log.Printf("[Statistics] Failed to update daily timestamp for %s: %v", day, err)
	}
	if err := p.store.Expire(ctx, key, cache.DailyStatsTTL); err != nil {
		log.Printf("[Statistics] Failed to expire daily stats %s: %v", key, err)
	}
}

func (p *Pipeline) applyProductSales(ctx context.Context, o *order.Order) {
	for _, line := range o.Items {
		if _, err := p.store.ZIncrBy(ctx, cache.ProductRankKey, float64(line.Quantity), line.ProductID); err != nil {
			log.Printf("[Statistics] Failed to update rank for product %s: %v", line.ProductID, err)
			continue
		}

		detailKey := cache.ProductSalesKey(line.ProductID)
		if _, err := p.store.HIncrBy(ctx, detailKey, "totalSales", int64(line.Quantity)); err != nil {
			log.Printf("[Statistics] Failed to update sales detail for product %s: %v", line.ProductID, err)
		}
		if err := p.store.HSet(ctx, detailKey, "lastUpdate", p.millis()); err != nil {
			log.Printf("[Statistics] Failed to update detail timestamp for product %s: %v", line.ProductID, err)
		}
		p.backfillProductName(ctx, detailKey, line.ProductID)
	}
}

// backfillProductName sets the display name once, lazily, from the catalog.
func (p *Pipeline) backfillProductName(ctx context.Context, detailKey, productID string) {
	_, found, err := p.store.HGet(ctx, detailKey, "name")
	if err != nil || found {
		return
	}
	prod, err := p.products.GetByID(ctx, productID)
	if err != nil {
		log.Printf("[Statistics] Failed to get product name for %s: %v", productID, err)
		return
	}
	if err := p.store.HSet(ctx, detailKey, "name", prod.Name); err != nil {
		log.Printf("[Statistics] Failed to set product name for %s: %v", productID, err)
	}
}

func (p *Pipeline) millis() string {
	return strconv.FormatInt(p.now().UnixMilli(), 10)
}
