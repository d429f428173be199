package idgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/cache/mocks"
)

// ============================================
// Next
// ============================================

func TestGenerator_NextFormat(t *testing.T) {
	store := mocks.NewMemory()
	gen := NewGenerator(store)
	gen.now = func() time.Time {
		return time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)
	}

	id := gen.Next(context.Background())

	require.Len(t, id, 20)
	assert.Equal(t, "20260107103000", id[:14])
	assert.Equal(t, "000001", id[14:])
}

func TestGenerator_NextSequenceIncrements(t *testing.T) {
	store := mocks.NewMemory()
	gen := NewGenerator(store)
	gen.now = func() time.Time {
		return time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)
	}

	first := gen.Next(context.Background())
	second := gen.Next(context.Background())
	third := gen.Next(context.Background())

	assert.Equal(t, "000001", first[14:])
	assert.Equal(t, "000002", second[14:])
	assert.Equal(t, "000003", third[14:])
}

func TestGenerator_NextSequenceResetsPerSecond(t *testing.T) {
	store := mocks.NewMemory()
	gen := NewGenerator(store)

	at := time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)
	gen.now = func() time.Time { return at }
	first := gen.Next(context.Background())

	at = at.Add(time.Second)
	second := gen.Next(context.Background())

	assert.Equal(t, "000001", first[14:])
	assert.Equal(t, "000001", second[14:])
	assert.NotEqual(t, first[:14], second[:14])
}

func TestGenerator_NextFallsBackWhenCacheUnavailable(t *testing.T) {
	store := mocks.NewMemory()
	store.FailOn("Incr", errors.New("connection refused"))
	gen := NewGenerator(store)
	gen.now = func() time.Time {
		return time.Date(2026, 1, 7, 10, 30, 0, 123456789, time.UTC)
	}

	id := gen.Next(context.Background())

	require.Len(t, id, 20)
	assert.Equal(t, "20260107103000", id[:14])
	// Suffix is the low 6 digits of the millisecond clock
	// (1767781800123ms % 1000000), not the cache sequence.
	assert.Equal(t, "800123", id[14:])
	assert.NotEqual(t, "000001", id[14:])
}
