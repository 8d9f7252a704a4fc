/*
handlers_test.go - HTTP tests for the API layer

Exercises the full router over the in-memory store: round-trips through
JSON, status mapping for each domain error kind, and the seed loader.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/api"
	"github.com/warp/rental-engine/rental"
	"github.com/warp/rental-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := rental.NewService(memory.New())
	h := api.NewHandler(svc, nil, 10)
	srv := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func createCustomer(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/customers", map[string]any{
		"name": "Ram Constructions", "phone": "9000010001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func createStock(t *testing.T, srv *httptest.Server, qty int, unitPrice string) string {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/stocks", map[string]any{
		"name": "Scaffolding Frame", "quantity": qty, "unit_price": unitPrice,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestCustomerLifecycle(t *testing.T) {
	srv := newTestServer(t)

	id := createCustomer(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/customers/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ram Constructions", body["name"])
	assert.Equal(t, "0", body["advance"])
	assert.Equal(t, "Processing", body["status"])

	resp, body = doJSON(t, srv, http.MethodPut, "/api/customers/"+id, map[string]any{
		"name": "Ram Constructions Pvt Ltd", "phone": "9000010001",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ram Constructions Pvt Ltd", body["name"])

	resp, _ = doJSON(t, srv, http.MethodDelete, "/api/customers/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/customers/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrderFlow_AdvanceAndItems(t *testing.T) {
	// GIVEN: A customer and stock
	// WHEN: Opening an order with an advance and renting 20 units
	// THEN: Money fields come back as decimal strings and the allocation
	//       endpoint shows the remainder as the last item's bonus

	srv := newTestServer(t)
	customerID := createCustomer(t, srv)
	stockID := createStock(t, srv, 100, "150")

	resp, order := doJSON(t, srv, http.MethodPost, "/api/orders", map[string]any{
		"customer_id": customerID, "order_date": "2025-06-01", "advance": "5000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := order["id"].(string)

	resp, item := doJSON(t, srv, http.MethodPost, "/api/orders/"+orderID+"/items", map[string]any{
		"stock_id": stockID, "quantity": 20,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "3000", item["total_price"])
	assert.Equal(t, "3000", item["pending_amount"])

	resp, stock := doJSON(t, srv, http.MethodGet, "/api/stocks/"+stockID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(80), stock["quantity"])

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/customers/"+customerID+"/allocation", nil)
	require.NoError(t, err)
	allocResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer allocResp.Body.Close()
	require.Equal(t, http.StatusOK, allocResp.StatusCode)

	var allocs []map[string]any
	require.NoError(t, json.NewDecoder(allocResp.Body).Decode(&allocs))
	require.Len(t, allocs, 1)
	assert.Equal(t, "0", allocs[0]["pending"])
	assert.Equal(t, "2000", allocs[0]["bonus"])
}

func TestReturnOrder_Endpoint(t *testing.T) {
	srv := newTestServer(t)
	customerID := createCustomer(t, srv)
	stockID := createStock(t, srv, 100, "150")

	_, order := doJSON(t, srv, http.MethodPost, "/api/orders", map[string]any{
		"customer_id": customerID, "order_date": "2025-06-01", "advance": "5000",
	})
	orderID := order["id"].(string)
	doJSON(t, srv, http.MethodPost, "/api/orders/"+orderID+"/items", map[string]any{
		"stock_id": stockID, "quantity": 20,
	})

	resp, returned := doJSON(t, srv, http.MethodPost, "/api/orders/"+orderID+"/return", map[string]any{
		"return_date": "2025-06-15",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, returned["returned"])
	assert.Equal(t, "2025-06-15", *jsonStr(returned, "return_date"))

	resp, detail := doJSON(t, srv, http.MethodGet, "/api/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := detail["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "2000", first["bonus_amount"])
	assert.Equal(t, float64(14), first["used_days"])
}

func jsonStr(m map[string]any, key string) *string {
	if v, ok := m[key].(string); ok {
		return &v
	}
	return nil
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	customerID := createCustomer(t, srv)
	stockID := createStock(t, srv, 3, "100")

	_, order := doJSON(t, srv, http.MethodPost, "/api/orders", map[string]any{
		"customer_id": customerID, "order_date": "2025-06-01", "advance": "0",
	})
	orderID := order["id"].(string)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing record is 404", http.MethodGet, "/api/customers/does-not-exist", nil, http.StatusNotFound},
		{"bad date is 400", http.MethodPost, "/api/orders",
			map[string]any{"customer_id": customerID, "order_date": "June 1st"}, http.StatusBadRequest},
		{"negative advance is 400", http.MethodPost, "/api/orders",
			map[string]any{"customer_id": customerID, "order_date": "2025-06-01", "advance": "-5"}, http.StatusBadRequest},
		{"insufficient stock is 409", http.MethodPost, "/api/orders/" + orderID + "/items",
			map[string]any{"stock_id": stockID, "quantity": 10}, http.StatusConflict},
		{"bad shipment type is 400", http.MethodPost, "/api/shipments",
			map[string]any{"type": "Sideways", "stock_id": stockID, "quantity": 1}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, srv, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			if assert.NotNil(t, body) {
				assert.NotEmpty(t, body["error"], "error body must carry a message")
			}
		})
	}
}

func TestDeleteGuards(t *testing.T) {
	srv := newTestServer(t)
	customerID := createCustomer(t, srv)
	stockID := createStock(t, srv, 50, "100")

	_, order := doJSON(t, srv, http.MethodPost, "/api/orders", map[string]any{
		"customer_id": customerID, "order_date": "2025-06-01",
	})
	orderID := order["id"].(string)
	doJSON(t, srv, http.MethodPost, "/api/orders/"+orderID+"/items", map[string]any{
		"stock_id": stockID, "quantity": 2,
	})

	resp, _ := doJSON(t, srv, http.MethodDelete, "/api/customers/"+customerID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "customer with orders")

	resp, _ = doJSON(t, srv, http.MethodDelete, "/api/stocks/"+stockID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "stock with items")
}

// =============================================================================
// SHIPMENT AND DASHBOARD TESTS
// =============================================================================

func TestShipmentEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	stockID := createStock(t, srv, 50, "60")

	resp, sh := doJSON(t, srv, http.MethodPost, "/api/shipments", map[string]any{
		"type": "Import", "stock_id": stockID, "quantity": 20, "supplier": "Apex Steel",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	shipmentID := sh["id"].(string)
	assert.Equal(t, "Pending", sh["status"])

	resp, _ = doJSON(t, srv, http.MethodPut, "/api/shipments/"+shipmentID, map[string]any{
		"type": "Import", "stock_id": stockID, "quantity": 5, "status": "Delivered",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, stock := doJSON(t, srv, http.MethodGet, "/api/stocks/"+stockID, nil)
	assert.Equal(t, float64(55), stock["quantity"])

	resp, _ = doJSON(t, srv, http.MethodDelete, "/api/shipments/"+shipmentID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, stock = doJSON(t, srv, http.MethodGet, "/api/stocks/"+stockID, nil)
	assert.Equal(t, float64(50), stock["quantity"])
}

func TestSeedAndDashboard(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/seed", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, dash := doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, key := range []string{"stocks", "customers", "orders", "shipments"} {
		assert.Greater(t, dash[key], float64(0), fmt.Sprintf("%s should be seeded", key))
	}
	assert.GreaterOrEqual(t, dash["low_stock"], float64(1), "seed includes a low stock record")
}
