/*
store.go - Record store consumed by the service layer

PURPOSE:
  Defines the persistence interface the operations in this package run
  against. Implementations live under store/ (memory, sqlite, postgres);
  the service does not care which.

CONTRACT:
  - Get* returns (nil, nil) when the record does not exist; the service
    layer turns that into a billing.NotFoundError.
  - Save* is a synchronous upsert.
  - ListItemsByCustomer preserves per-order then per-item creation order;
    the allocation sweep depends on it.
  - DeleteOrder cascades deletion of the order's items.
  - WithTx groups writes into one atomic unit: either every write inside
    fn is applied or none is. Mutating operations route all their writes
    through it so partial updates cannot be observed.
*/
package rental

import (
	"context"

	"github.com/warp/rental-engine/billing"
)

// Counts summarizes the dataset for the dashboard. LowStock counts stock
// records whose quantity is below the threshold passed to Counts().
type Counts struct {
	Stocks    int
	Customers int
	Orders    int
	Shipments int
	LowStock  int
}

// Store is the synchronous record store behind the service layer.
type Store interface {
	// Customers
	GetCustomer(ctx context.Context, id billing.CustomerID) (*billing.Customer, error)
	ListCustomers(ctx context.Context) ([]billing.Customer, error)
	SaveCustomer(ctx context.Context, c billing.Customer) error
	DeleteCustomer(ctx context.Context, id billing.CustomerID) error

	// Stock
	GetStock(ctx context.Context, id billing.StockID) (*billing.Stock, error)
	ListStock(ctx context.Context) ([]billing.Stock, error)
	SaveStock(ctx context.Context, s billing.Stock) error
	DeleteStock(ctx context.Context, id billing.StockID) error

	// Orders
	GetOrder(ctx context.Context, id billing.OrderID) (*billing.Order, error)
	ListOrdersByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.Order, error)
	ListOrders(ctx context.Context) ([]billing.Order, error)
	SaveOrder(ctx context.Context, o billing.Order) error
	// DeleteOrder cascades deletion of the order's items.
	DeleteOrder(ctx context.Context, id billing.OrderID) error

	// Order items
	ListItemsByOrder(ctx context.Context, id billing.OrderID) ([]billing.OrderItem, error)
	// ListItemsByCustomer flattens the customer's items across all orders,
	// preserving per-order then per-item creation order.
	ListItemsByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.OrderItem, error)
	ListItemsByStock(ctx context.Context, id billing.StockID) ([]billing.OrderItem, error)
	SaveOrderItem(ctx context.Context, item billing.OrderItem) error

	// Shipments
	GetShipment(ctx context.Context, id billing.ShipmentID) (*billing.Shipment, error)
	ListShipments(ctx context.Context) ([]billing.Shipment, error)
	SaveShipment(ctx context.Context, sh billing.Shipment) error
	DeleteShipment(ctx context.Context, id billing.ShipmentID) error

	// Counts returns dashboard totals; lowStockBelow is the low-stock
	// threshold (exclusive).
	Counts(ctx context.Context, lowStockBelow int) (Counts, error)

	// WithTx executes fn atomically: all writes or none.
	WithTx(ctx context.Context, fn func(Store) error) error
}
