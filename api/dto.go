/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND DATES:
  Monetary fields travel as decimal strings ("1500.00"), never floats.
  Dates travel as "YYYY-MM-DD"; timestamps as RFC 3339.

VALIDATION:
  Validation is done in handlers and the service layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

const dateLayout = "2006-01-02"

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	VehicleNo     string `json:"vehicle_no"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Status        string `json:"status"`
	Advance       string `json:"advance"`
	AdvanceClosed bool   `json:"advance_closed"`
	CreatedAt     string `json:"created_at"`
}

// CustomerRequest is the body for creating or updating a customer.
type CustomerRequest struct {
	Name      string `json:"name"`
	VehicleNo string `json:"vehicle_no"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func toCustomerDTO(c billing.Customer) CustomerDTO {
	return CustomerDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		VehicleNo:     c.VehicleNo,
		Phone:         c.Phone,
		Address:       c.Address,
		Status:        c.Status,
		Advance:       c.Advance.String(),
		AdvanceClosed: c.AdvanceClosed,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// STOCK
// =============================================================================

// StockDTO represents a stock record in API responses.
type StockDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// StockRequest is the body for creating or updating a stock record.
type StockRequest struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func toStockDTO(st billing.Stock) StockDTO {
	return StockDTO{
		ID:        string(st.ID),
		Name:      st.Name,
		Category:  st.Category,
		Quantity:  st.Quantity,
		UnitPrice: st.UnitPrice.String(),
	}
}

// =============================================================================
// ORDERS
// =============================================================================

// OrderDTO represents an order in API responses.
type OrderDTO struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	OrderDate  string  `json:"order_date"`
	ReturnDate *string `json:"return_date"`
	Returned   bool    `json:"returned"`
	CreatedAt  string  `json:"created_at"`
}

// CreateOrderRequest opens an order, optionally paying an advance with it.
type CreateOrderRequest struct {
	CustomerID string `json:"customer_id"`
	OrderDate  string `json:"order_date"`
	Advance    string `json:"advance"`
}

// EditOrderRequest rewrites an order's date and the customer's advance.
type EditOrderRequest struct {
	OrderDate string `json:"order_date"`
	Advance   string `json:"advance"`
}

// AddItemRequest adds a line item to an order.
type AddItemRequest struct {
	StockID  string `json:"stock_id"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

// ReturnOrderRequest closes out an order on the given date.
type ReturnOrderRequest struct {
	ReturnDate string `json:"return_date"`
}

// OrderItemDTO represents an order line in API responses.
type OrderItemDTO struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	StockID       string  `json:"stock_id"`
	Quantity      int     `json:"quantity"`
	UnitPrice     string  `json:"unit_price"`
	TotalPrice    string  `json:"total_price"`
	PendingAmount string  `json:"pending_amount"`
	BonusAmount   string  `json:"bonus_amount"`
	FineAmount    string  `json:"fine_amount"`
	UsedDays      int     `json:"used_days"`
	ReturnDate    *string `json:"return_date"`
	Status        string  `json:"status"`
}

// OrderDetailDTO wraps an order with its line items.
type OrderDetailDTO struct {
	Order OrderDTO       `json:"order"`
	Items []OrderItemDTO `json:"items"`
}

func toOrderDTO(o billing.Order) OrderDTO {
	dto := OrderDTO{
		ID:         string(o.ID),
		CustomerID: string(o.CustomerID),
		OrderDate:  o.OrderDate.Format(dateLayout),
		Returned:   o.Returned(),
		CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339),
	}
	if o.ReturnDate != nil {
		rd := o.ReturnDate.Format(dateLayout)
		dto.ReturnDate = &rd
	}
	return dto
}

func toOrderItemDTO(it billing.OrderItem) OrderItemDTO {
	dto := OrderItemDTO{
		ID:            string(it.ID),
		OrderID:       string(it.OrderID),
		StockID:       string(it.StockID),
		Quantity:      it.Quantity,
		UnitPrice:     it.UnitPrice.String(),
		TotalPrice:    it.TotalPrice.String(),
		PendingAmount: it.PendingAmount.String(),
		BonusAmount:   it.BonusAmount.String(),
		FineAmount:    it.FineAmount.String(),
		UsedDays:      it.UsedDays,
		Status:        it.Status,
	}
	if it.ReturnDate != nil {
		rd := it.ReturnDate.Format(dateLayout)
		dto.ReturnDate = &rd
	}
	return dto
}

func toOrderItemDTOs(items []billing.OrderItem) []OrderItemDTO {
	dtos := make([]OrderItemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, toOrderItemDTO(it))
	}
	return dtos
}

// =============================================================================
// SHIPMENTS
// =============================================================================

// ShipmentDTO represents a shipment in API responses.
type ShipmentDTO struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	StockID      string `json:"stock_id"`
	Quantity     int    `json:"quantity"`
	Supplier     string `json:"supplier"`
	Status       string `json:"status"`
	ShipmentDate string `json:"shipment_date"`
}

// ShipmentRequest is the body for creating or updating a shipment.
type ShipmentRequest struct {
	Type     string `json:"type"`
	StockID  string `json:"stock_id"`
	Quantity int    `json:"quantity"`
	Supplier string `json:"supplier"`
	Status   string `json:"status"`
}

func toShipmentDTO(sh billing.Shipment) ShipmentDTO {
	return ShipmentDTO{
		ID:           string(sh.ID),
		Type:         string(sh.Type),
		StockID:      string(sh.StockID),
		Quantity:     sh.Quantity,
		Supplier:     sh.Supplier,
		Status:       sh.Status,
		ShipmentDate: sh.ShipmentDate.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// ALLOCATION AND DASHBOARD
// =============================================================================

// AllocationDTO is one line of a customer's advance allocation preview.
type AllocationDTO struct {
	ItemID     string `json:"item_id"`
	OrderID    string `json:"order_id"`
	TotalPrice string `json:"total_price"`
	Pending    string `json:"pending"`
	Bonus      string `json:"bonus"`
}

func toAllocationDTOs(allocs []billing.ItemAllocation) []AllocationDTO {
	dtos := make([]AllocationDTO, 0, len(allocs))
	for _, a := range allocs {
		dtos = append(dtos, AllocationDTO{
			ItemID:     string(a.Item.ID),
			OrderID:    string(a.Item.OrderID),
			TotalPrice: a.Item.TotalPrice.String(),
			Pending:    a.Pending.String(),
			Bonus:      a.Bonus.String(),
		})
	}
	return dtos
}

// DashboardDTO carries the landing-page counters.
type DashboardDTO struct {
	Stocks    int `json:"stocks"`
	Customers int `json:"customers"`
	Orders    int `json:"orders"`
	Shipments int `json:"shipments"`
	LowStock  int `json:"low_stock"`
}

func toDashboardDTO(c rental.Counts) DashboardDTO {
	return DashboardDTO{
		Stocks:    c.Stocks,
		Customers: c.Customers,
		Orders:    c.Orders,
		Shipments: c.Shipments,
		LowStock:  c.LowStock,
	}
}

// ErrorResponse is the JSON body for all error statuses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
