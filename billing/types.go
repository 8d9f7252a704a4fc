/*
Package billing provides the core financial allocation engine.

PURPOSE:
  This package contains the pure domain types and algorithms behind the
  rental business: customers with advance balances, orders made of priced
  items, stock counters, and the rules that split an advance into per-item
  pending and bonus amounts. Everything here is deterministic computation
  over in-memory records - no storage, no HTTP, no logging.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: holds the running advance balance and its settlement flag
  - Order/OrderItem: an order is an ordered sequence of priced items;
    item creation order is significant for allocation
  - Stock: on-hand counter, never negative
  - Shipment: import/export movement against a stock counter

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float64
  2. Purity: allocation is a function of (advance, items) with no hidden state
  3. Type Safety: distinct ID types prevent mixing record identities

SEE ALSO:
  - allocation.go: customer-wide advance sweep (display-time estimate)
  - reconcile.go: return-time settlement (authoritative, order-scoped)
  - advance.go: advance balance lifecycle
  - errors.go: error kinds shared by the engine and its callers
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type OrderID string
type OrderItemID string
type StockID string
type ShipmentID string

// =============================================================================
// RECORDS
// =============================================================================

// Customer owns zero or more orders and a running advance balance.
//
// Advance is never negative. AdvanceClosed marks the current advance cycle
// as settled: the next non-zero advance starts fresh instead of accumulating.
type Customer struct {
	ID            CustomerID
	Name          string
	VehicleNo     string
	Phone         string
	Address       string
	Status        string
	Advance       decimal.Decimal
	AdvanceClosed bool
	CreatedAt     time.Time
}

// Order belongs to exactly one customer. ReturnDate is nil while the order
// is open; once set via return reconciliation it never reverts.
type Order struct {
	ID         OrderID
	CustomerID CustomerID
	OrderDate  time.Time
	ReturnDate *time.Time
	CreatedAt  time.Time
}

// Returned reports whether the order has been through return reconciliation.
func (o Order) Returned() bool { return o.ReturnDate != nil }

// OrderItem is one priced line of an order.
//
// TotalPrice is always Quantity x UnitPrice. PendingAmount and
// BonusAmount are allocation outputs; at most one item per order ever carries
// a non-zero bonus. FineAmount is a fixed zero - a placeholder for a late-fee
// rule that was never built.
type OrderItem struct {
	ID            OrderItemID
	OrderID       OrderID
	StockID       StockID
	Quantity      int
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	PendingAmount decimal.Decimal
	BonusAmount   decimal.Decimal
	FineAmount    decimal.Decimal
	UsedDays      int
	ReturnDate    *time.Time
	Status        string
}

// Stock is an on-hand counter with a unit price snapshot source.
type Stock struct {
	ID        StockID
	Name      string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
}

type ShipmentType string

const (
	ShipmentImport ShipmentType = "Import"
	ShipmentExport ShipmentType = "Export"
)

// Valid reports whether t is a known shipment type.
func (t ShipmentType) Valid() bool {
	return t == ShipmentImport || t == ShipmentExport
}

// Shipment records one stock movement. Import increments the stock counter,
// Export decrements it (guarded against going negative).
type Shipment struct {
	ID           ShipmentID
	Type         ShipmentType
	StockID      StockID
	Quantity     int
	Supplier     string
	Status       string
	ShipmentDate time.Time
}

// Status labels carried by order items and shipments.
const (
	StatusPending   = "Pending"
	StatusDelivered = "Delivered"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// ItemTotal computes quantity x unit price for an order item.
func ItemTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// MustDecimal parses a decimal string, returning zero on malformed input.
// Intended for literals in seeds and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
