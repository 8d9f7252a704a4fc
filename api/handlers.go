/*
handlers.go - HTTP API handlers for the rental engine

PURPOSE:
  Exposes the rental engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Customers:
    GET    /api/customers                  List all customers
    POST   /api/customers                  Create customer
    GET    /api/customers/{id}             Get customer details
    PUT    /api/customers/{id}             Update operator fields
    DELETE /api/customers/{id}             Delete (guarded)
    GET    /api/customers/{id}/allocation  Advance allocation preview
    POST   /api/customers/{id}/settle      Close the advance cycle

  Stock:
    GET    /api/stocks                     List stock
    POST   /api/stocks                     Create stock record
    GET    /api/stocks/{id}                Get stock record
    PUT    /api/stocks/{id}                Update stock record
    DELETE /api/stocks/{id}                Delete (guarded)
    GET    /api/stocks/{id}/items          Order lines against a stock

  Orders:
    GET    /api/orders                     List orders
    POST   /api/orders                     Open an order (with advance)
    GET    /api/orders/{id}                Order with its items
    PUT    /api/orders/{id}                Edit date and advance
    DELETE /api/orders/{id}                Delete (reverses advance)
    POST   /api/orders/{id}/items          Add line item
    POST   /api/orders/{id}/return         Return and reconcile

  Shipments:
    GET    /api/shipments                  List shipments
    POST   /api/shipments                  Record a movement
    GET    /api/shipments/{id}             Get shipment
    PUT    /api/shipments/{id}             Edit (reverse then apply)
    DELETE /api/shipments/{id}             Delete (reverses movement)

  Dashboard:
    GET    /api/dashboard                  Entity counters

  Demo:
    POST   /api/seed                       Load demo data

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation errors, malformed input
  - 404: record not found
  - 409: insufficient stock
  - 500: invariant violations, storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - seed.go: Demo data loader
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service       *rental.Service
	Log           *zap.Logger
	LowStockBelow int
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *rental.Service, log *zap.Logger, lowStockBelow int) *Handler {
	return &Handler{
		Service:       svc,
		Log:           log,
		LowStockBelow: lowStockBelow,
	}
}

// =============================================================================
// CUSTOMER ENDPOINTS
// =============================================================================

// ListCustomers returns all customers.
// GET /api/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, 0, len(customers))
	for _, c := range customers {
		dtos = append(dtos, toCustomerDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates a customer.
// POST /api/customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	customer, err := h.Service.CreateCustomer(r.Context(), rental.CustomerInput{
		Name:      req.Name,
		VehicleNo: req.VehicleNo,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

// GetCustomer returns one customer.
// GET /api/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	customer, err := h.Service.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// UpdateCustomer updates a customer's operator fields. The advance and
// its flag are engine-owned and cannot be set here.
// PUT /api/customers/{id}
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	customer, err := h.Service.UpdateCustomer(r.Context(), id, rental.CustomerInput{
		Name:      req.Name,
		VehicleNo: req.VehicleNo,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// DeleteCustomer deletes a customer with no orders.
// DELETE /api/customers/{id}
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteCustomer(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAllocation previews how the customer's advance spreads across their
// items, oldest first. Read-only; nothing is persisted.
// GET /api/customers/{id}/allocation
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	allocs, err := h.Service.RecomputeCustomerAllocation(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to compute allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocs))
}

// SettleAdvance closes the customer's advance cycle. The balance stays on
// the record for display; the next order's advance starts a fresh cycle.
// POST /api/customers/{id}/settle
func (h *Handler) SettleAdvance(w http.ResponseWriter, r *http.Request) {
	id := billing.CustomerID(chi.URLParam(r, "id"))

	if err := h.Service.SettleAdvance(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to settle advance", err)
		return
	}

	customer, err := h.Service.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// =============================================================================
// STOCK ENDPOINTS
// =============================================================================

// ListStock returns all stock records.
// GET /api/stocks
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.Service.ListStock(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list stock", err)
		return
	}

	dtos := make([]StockDTO, 0, len(stocks))
	for _, st := range stocks {
		dtos = append(dtos, toStockDTO(st))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStock creates a stock record.
// POST /api/stocks
func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	in, ok := h.stockInput(w, r)
	if !ok {
		return
	}

	stock, err := h.Service.CreateStock(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create stock", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStockDTO(stock))
}

// GetStock returns one stock record.
// GET /api/stocks/{id}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id := billing.StockID(chi.URLParam(r, "id"))

	stock, err := h.Service.GetStock(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(stock))
}

// UpdateStock overwrites a stock record, quantity included.
// PUT /api/stocks/{id}
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id := billing.StockID(chi.URLParam(r, "id"))

	in, ok := h.stockInput(w, r)
	if !ok {
		return
	}

	stock, err := h.Service.UpdateStock(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, "Failed to update stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(stock))
}

// DeleteStock deletes a stock record no order line references.
// DELETE /api/stocks/{id}
func (h *Handler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	id := billing.StockID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteStock(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete stock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStockItems lists the order lines drawn against a stock record.
// GET /api/stocks/{id}/items
func (h *Handler) GetStockItems(w http.ResponseWriter, r *http.Request) {
	id := billing.StockID(chi.URLParam(r, "id"))

	items, err := h.Service.ListStockItems(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list stock items", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemDTOs(items))
}

func (h *Handler) stockInput(w http.ResponseWriter, r *http.Request) (rental.StockInput, bool) {
	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return rental.StockInput{}, false
	}

	unitPrice, err := parseMoney(req.UnitPrice, "unit_price")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid unit_price", err)
		return rental.StockInput{}, false
	}

	return rental.StockInput{
		Name:      req.Name,
		Category:  req.Category,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
	}, true
}

// =============================================================================
// ORDER ENDPOINTS
// =============================================================================

// ListOrders returns all orders.
// GET /api/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Service.ListOrders(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOrder opens an order, feeding any advance paid with it into the
// customer's open cycle.
// POST /api/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	orderDate, err := parseDate(req.OrderDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order_date format (use YYYY-MM-DD)", err)
		return
	}
	advance, err := parseMoney(req.Advance, "advance")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid advance", err)
		return
	}

	order, err := h.Service.CreateOrder(r.Context(), billing.CustomerID(req.CustomerID), orderDate, advance)
	if err != nil {
		h.writeDomainError(w, "Failed to create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

// GetOrder returns one order with its line items.
// GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := billing.OrderID(chi.URLParam(r, "id"))

	order, items, err := h.Service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get order", err)
		return
	}
	writeJSON(w, http.StatusOK, OrderDetailDTO{
		Order: toOrderDTO(order),
		Items: toOrderItemDTOs(items),
	})
}

// EditOrder rewrites the order date and overwrites the customer's advance
// with the submitted amount.
// PUT /api/orders/{id}
func (h *Handler) EditOrder(w http.ResponseWriter, r *http.Request) {
	id := billing.OrderID(chi.URLParam(r, "id"))

	var req EditOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	orderDate, err := parseDate(req.OrderDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order_date format (use YYYY-MM-DD)", err)
		return
	}
	advance, err := parseMoney(req.Advance, "advance")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid advance", err)
		return
	}

	order, err := h.Service.EditOrder(r.Context(), id, orderDate, advance)
	if err != nil {
		h.writeDomainError(w, "Failed to edit order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// DeleteOrder removes an order and its items, reversing the advance it
// contributed. Stock counters are not restored.
// DELETE /api/orders/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := billing.OrderID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteOrder(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddOrderItem adds a line item, decrementing stock and re-sweeping the
// customer's advance allocation.
// POST /api/orders/{id}/items
func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	id := billing.OrderID(chi.URLParam(r, "id"))

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item, err := h.Service.AddOrderItem(r.Context(), id, billing.StockID(req.StockID), req.Quantity, req.Status)
	if err != nil {
		h.writeDomainError(w, "Failed to add order item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderItemDTO(item))
}

// ReturnOrder closes the order on the given date and reconciles its lines
// against the customer's advance.
// POST /api/orders/{id}/return
func (h *Handler) ReturnOrder(w http.ResponseWriter, r *http.Request) {
	id := billing.OrderID(chi.URLParam(r, "id"))

	var req ReturnOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	returnDate, err := parseDate(req.ReturnDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid return_date format (use YYYY-MM-DD)", err)
		return
	}

	order, err := h.Service.ReturnOrder(r.Context(), id, returnDate)
	if err != nil {
		h.writeDomainError(w, "Failed to return order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// =============================================================================
// SHIPMENT ENDPOINTS
// =============================================================================

// ListShipments returns all shipments.
// GET /api/shipments
func (h *Handler) ListShipments(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.Service.ListShipments(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list shipments", err)
		return
	}

	dtos := make([]ShipmentDTO, 0, len(shipments))
	for _, sh := range shipments {
		dtos = append(dtos, toShipmentDTO(sh))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShipment records a stock movement and applies it to the counter.
// POST /api/shipments
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.shipmentInput(w, r)
	if !ok {
		return
	}

	shipment, err := h.Service.AddShipment(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create shipment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentDTO(shipment))
}

// GetShipment returns one shipment.
// GET /api/shipments/{id}
func (h *Handler) GetShipment(w http.ResponseWriter, r *http.Request) {
	id := billing.ShipmentID(chi.URLParam(r, "id"))

	shipment, err := h.Service.GetShipment(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get shipment", err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentDTO(shipment))
}

// EditShipment rewrites a shipment: the original movement is reversed and
// the new one applied in one transaction.
// PUT /api/shipments/{id}
func (h *Handler) EditShipment(w http.ResponseWriter, r *http.Request) {
	id := billing.ShipmentID(chi.URLParam(r, "id"))

	in, ok := h.shipmentInput(w, r)
	if !ok {
		return
	}

	shipment, err := h.Service.EditShipment(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, "Failed to edit shipment", err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentDTO(shipment))
}

// DeleteShipment removes a shipment, reversing its stock movement.
// DELETE /api/shipments/{id}
func (h *Handler) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	id := billing.ShipmentID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteShipment(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete shipment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) shipmentInput(w http.ResponseWriter, r *http.Request) (rental.ShipmentInput, bool) {
	var req ShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return rental.ShipmentInput{}, false
	}

	return rental.ShipmentInput{
		Type:     billing.ShipmentType(req.Type),
		StockID:  billing.StockID(req.StockID),
		Quantity: req.Quantity,
		Supplier: req.Supplier,
		Status:   req.Status,
	}, true
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the landing-page counters.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.Dashboard(r.Context(), h.LowStockBelow)
	if err != nil {
		h.writeDomainError(w, "Failed to load dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(counts))
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// parseMoney parses a decimal string; empty means zero.
func parseMoney(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &billing.ValidationError{Field: field, Message: "must be a decimal number"}
	}
	return d, nil
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case billing.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, billing.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, billing.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err onto its status and logs server-side failures.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && h.Log != nil {
		h.Log.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
