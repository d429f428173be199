package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/api"
	cachemocks "github.com/example/storefront-core/internal/cache/mocks"
	"github.com/example/storefront-core/internal/cart"
	cartmocks "github.com/example/storefront-core/internal/cart/mocks"
	"github.com/example/storefront-core/internal/idgen"
	"github.com/example/storefront-core/internal/order"
	ordermocks "github.com/example/storefront-core/internal/order/mocks"
	"github.com/example/storefront-core/internal/product"
	productmocks "github.com/example/storefront-core/internal/product/mocks"
	"github.com/example/storefront-core/internal/statistics"
)

type harness struct {
	router   http.Handler
	pipeline *statistics.Pipeline
	stock    *ordermocks.Stock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := cachemocks.NewMemory()
	repo := ordermocks.NewRepository()
	stk := ordermocks.NewStock()
	catalog := productmocks.NewCatalog()
	cartSvc := cart.NewService(mem, cartmocks.NewDurableStore(), stk, catalog)
	tally := order.NewTally(mem)
	pipeline := statistics.NewPipeline(mem, repo, catalog)
	orderSvc := order.NewService(repo, stk, cartSvc, catalog, idgen.NewGenerator(mem), pipeline, tally, nil)

	catalog.Add(product.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.00")})
	stk.Set("p1", 5)

	handlers := api.NewHandlers(cartSvc, orderSvc, pipeline, tally)
	return &harness{router: api.NewRouter(handlers), pipeline: pipeline, stock: stk}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	h := newHarness(t)

	// Fill the cart.
	rec := h.do(t, http.MethodPost, "/cart/items", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "p1")
	assert.Contains(t, rec.Body.String(), "Widget")
	assert.Contains(t, rec.Body.String(), `"total_quantity":2`)
	assert.Contains(t, rec.Body.String(), `"total_amount":"20`)

	// Create the order.
	rec = h.do(t, http.MethodPost, "/orders", `{"product_ids":["p1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.OrderID, 20)
	assert.Equal(t, order.StatusPendingPayment, created.Status)
	assert.Equal(t, 3, h.stock.Level("p1"))

	// Drive it through the lifecycle.
	rec = h.do(t, http.MethodPost, "/orders/"+created.OrderID+"/pay", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/orders/"+created.OrderID+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Aggregate and read the statistics back.
	n, err := h.pipeline.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec = h.do(t, http.MethodGet, "/statistics/sales/total", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var total statistics.TotalSales
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &total))
	assert.True(t, total.TotalSales.Equal(decimal.RequireFromString("20")), "total %s", total.TotalSales)
	assert.Equal(t, int64(1), total.CompletedOrders)
}

func TestErrorStatusMapping(t *testing.T) {
	h := newHarness(t)

	// Validation errors map to 400.
	rec := h.do(t, http.MethodPost, "/orders", `{"product_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/cart/items", `{"product_id":"p1","quantity":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown order ids map to 404.
	rec = h.do(t, http.MethodPost, "/orders/20990101000000000001/pay", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// State machine rejections map to 409.
	require.Equal(t, http.StatusOK,
		h.do(t, http.MethodPost, "/cart/items", `{"product_id":"p1","quantity":1}`).Code)
	rec = h.do(t, http.MethodPost, "/orders", `{"product_ids":["p1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/orders/"+created.OrderID+"/pay", "").Code)
	rec = h.do(t, http.MethodPost, "/orders/"+created.OrderID+"/pay", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
