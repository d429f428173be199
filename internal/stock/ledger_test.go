package stock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/storefront-core/internal/cache/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *mocks.Memory) {
	t.Helper()
	store := mocks.NewMemory()
	return NewLedger(store), store
}

func TestLedger_ReserveRestoreRoundTrip(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Set(ctx, "prod-1", 10))

	ok, err := ledger.Reserve(ctx, "prod-1", 4)
	require.NoError(t, err)
	assert.True(t, ok)

	qty, found, err := ledger.Peek(ctx, "prod-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 6, qty)

	require.NoError(t, ledger.Restore(ctx, "prod-1", 4))

	qty, found, err = ledger.Peek(ctx, "prod-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 10, qty)
}

func TestLedger_ReserveInsufficient(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Set(ctx, "prod-1", 5))

	ok, err := ledger.Reserve(ctx, "prod-1", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// 2 left, another 3 must fail without mutating
	ok, err = ledger.Reserve(ctx, "prod-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	qty, _, err := ledger.Peek(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	require.NoError(t, ledger.Restore(ctx, "prod-1", 3))
	qty, _, err = ledger.Peek(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
}

func TestLedger_ReserveAbsentProduct(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	ok, err := ledger.Reserve(ctx, "unknown", 1)
	require.NoError(t, err)
	assert.False(t, ok, "absence of a stock record must fail the reservation")

	_, found, err := ledger.Peek(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLedger_ReserveInvalidQuantity(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, "prod-1", 0)
	assert.Error(t, err)
	_, err = ledger.Reserve(ctx, "prod-1", -2)
	assert.Error(t, err)
}

func TestLedger_ReserveStoreFailure(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()

	store.FailOn("CheckAndDecr", errors.New("connection refused"))

	_, err := ledger.Reserve(ctx, "prod-1", 1)
	assert.Error(t, err)
}

func TestLedger_ConcurrentReservationsNeverOversell(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	const total = 50
	const workers = 20
	const perReserve = 3

	require.NoError(t, ledger.Set(ctx, "prod-1", total))

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				ok, err := ledger.Reserve(ctx, "prod-1", perReserve)
				if err != nil || !ok {
					return
				}
				mu.Lock()
				reserved += perReserve
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	qty, _, err := ledger.Peek(ctx, "prod-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, qty, 0, "stock must never go negative")
	assert.Equal(t, total, reserved+qty, "every reserved unit must be accounted for")
}
