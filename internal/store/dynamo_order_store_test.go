package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/order"
)

// ============================================
// Row addressing
// ============================================

func TestSplitOrderID(t *testing.T) {
	date, seq, err := splitOrderID("20260107103000000042")

	require.NoError(t, err)
	assert.Equal(t, "20260107", date)
	assert.Equal(t, "000042", seq)
}

func TestSplitOrderIDMalformed(t *testing.T) {
	_, _, err := splitOrderID("short")
	assert.Error(t, err)

	_, _, err = splitOrderID("")
	assert.Error(t, err)
}

// ============================================
// Row restore
// ============================================

func TestUnmarshalOrderRestoresModel(t *testing.T) {
	payTime := time.Date(2026, 1, 7, 11, 0, 0, 0, time.UTC)
	row := &dynamoOrder{
		OrderDate:      "20260107",
		RowKey:         "000001_1767783000000",
		OrderID:        "20260107103000000001",
		UserID:         order.DefaultUserID,
		TotalAmount:    "20.00",
		DiscountAmount: "0",
		ActualAmount:   "20.00",
		Status:         string(order.StatusPaid),
		CreateTime:     time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC).Format(time.RFC3339Nano),
		PayTime:        payTime.Format(time.RFC3339Nano),
		Items:          `[{"product_id":"p1","product_name":"Widget","unit_price":"10","quantity":2,"line_total":"20"}]`,
		ItemCount:      1,
	}

	o, err := unmarshalOrder(row)

	require.NoError(t, err)
	assert.Equal(t, "20260107103000000001", o.OrderID)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, "20", o.ActualAmount.String())
	require.NotNil(t, o.PayTime)
	assert.True(t, o.PayTime.Equal(payTime))
	assert.Nil(t, o.CancelTime)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestUnmarshalOrderDefaultsMissingFields(t *testing.T) {
	// A row written before schema additions: no amounts, no items, no times.
	row := &dynamoOrder{
		OrderDate: "20260107",
		RowKey:    "000001_1767783000000",
		OrderID:   "20260107103000000001",
		Status:    string(order.StatusPendingPayment),
	}

	o, err := unmarshalOrder(row)

	require.NoError(t, err)
	assert.True(t, o.TotalAmount.IsZero())
	assert.True(t, o.ActualAmount.IsZero())
	assert.Empty(t, o.Items)
	assert.Nil(t, o.PayTime)
}

func TestUnmarshalOrderWithoutOrderID(t *testing.T) {
	row := &dynamoOrder{OrderDate: "20260107", RowKey: "000001_1767783000000"}

	_, err := unmarshalOrder(row)

	assert.Error(t, err)
}

func TestParseAmountToleratesGarbage(t *testing.T) {
	assert.True(t, parseAmount("").IsZero())
	assert.True(t, parseAmount("not-a-number").IsZero())
	assert.Equal(t, "12.34", parseAmount("12.34").String())
}
