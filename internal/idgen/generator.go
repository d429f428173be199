// Package idgen produces order identifiers.
//
// Format: 14-digit local timestamp (second precision) followed by a 6-digit
// zero-padded sequence, e.g. 20260107103000000001. The sequence comes from an
// atomic cache increment namespaced by the timestamp, so each second's
// sequence space is independent and self-cleaning via a short expiry.
package idgen

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/storefront-core/internal/cache"
)

const timestampLayout = "20060102150405"

type Generator struct {
	store cache.Store
	now   func() time.Time
}

func NewGenerator(store cache.Store) *Generator {
	return &Generator{store: store, now: time.Now}
}

// Next returns a new 20-character order identifier. When the cache increment
// is unavailable it falls back to the low 6 digits of the millisecond clock;
// uniqueness is degraded but id generation never blocks order creation.
func (g *Generator) Next(ctx context.Context) string {
	now := g.now()
	timestamp := now.Format(timestampLayout)
	return timestamp + g.sequence(ctx, timestamp, now)
}

func (g *Generator) sequence(ctx context.Context, timestamp string, now time.Time) string {
	key := cache.OrderSeqKey(timestamp)

	seq, err := g.store.Incr(ctx, key)
	if err != nil {
		log.Printf("[IdGen] Cache increment failed, falling back to clock sequence: %v", err)
		return fmt.Sprintf("%06d", now.UnixMilli()%1000000)
	}

	// Expire the per-second counter so the sequence space resets itself.
	if err := g.store.Expire(ctx, key, cache.OrderSeqTTL); err != nil {
		log.Printf("[IdGen] Failed to expire sequence key %s: %v", key, err)
	}

	return fmt.Sprintf("%06d", seq)
}
