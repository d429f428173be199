package order

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/example/storefront-core/internal/cache"
)

const dayLayout = "20060102"

// Tally keeps best-effort order counters in the cache: a running total,
// per-status counts, and day-bucketed variants of both. Counter failures are
// logged and never fail the lifecycle operation that triggered them.
type Tally struct {
	store cache.Store
	now   func() time.Time
}

func NewTally(store cache.Store) *Tally {
	return &Tally{store: store, now: time.Now}
}

// RecordCreated bumps the total and the initial-status counters for a new
// order.
func (t *Tally) RecordCreated(ctx context.Context) {
	day := t.now().Format(dayLayout)
	t.incr(ctx, cache.OrderCountTotalKey)
	t.incr(ctx, cache.OrderStatusCountKey(string(StatusPendingPayment)))
	t.incr(ctx, cache.OrderDailyCountKey(day))
	t.incr(ctx, cache.OrderDailyStatusCountKey(day, string(StatusPendingPayment)))
}

// RecordTransition moves one order from the old status counter to the new
// one. The total is untouched; an order changes state, it is not created
// twice.
func (t *Tally) RecordTransition(ctx context.Context, from, to Status) {
	day := t.now().Format(dayLayout)
	t.decr(ctx, cache.OrderStatusCountKey(string(from)))
	t.decr(ctx, cache.OrderDailyStatusCountKey(day, string(from)))
	t.incr(ctx, cache.OrderStatusCountKey(string(to)))
	t.incr(ctx, cache.OrderDailyStatusCountKey(day, string(to)))
}

// Snapshot returns the total and per-status counts. Missing counters read as
// zero.
func (t *Tally) Snapshot(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(Statuses)+1)

	total, err := t.read(ctx, cache.OrderCountTotalKey)
	if err != nil {
		return nil, err
	}
	stats["total"] = total

	for _, status := range Statuses {
		count, err := t.read(ctx, cache.OrderStatusCountKey(string(status)))
		if err != nil {
			return nil, err
		}
		stats[string(status)] = count
	}
	return stats, nil
}

func (t *Tally) read(ctx context.Context, key string) (int64, error) {
	raw, found, err := t.store.Get(ctx, key)
	if err != nil || !found {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("[Tally] Counter %s holds non-numeric value %q", key, raw)
		return 0, nil
	}
	return n, nil
}

func (t *Tally) incr(ctx context.Context, key string) {
	if _, err := t.store.Incr(ctx, key); err != nil {
		log.Printf("[Tally] Failed to increment %s: %v", key, err)
	}
}

func (t *Tally) decr(ctx context.Context, key string) {
	if _, err := t.store.Decr(ctx, key); err != nil {
		log.Printf("[Tally] Failed to decrement %s: %v", key, err)
	}
}
