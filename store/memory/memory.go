// Package memory provides an in-memory rental.Store for tests and dev.
//
// Records live in insertion-order slices, which is what preserves the
// per-order then per-item creation order the allocation sweep depends on.
// WithTx is simulated with a snapshot of the whole dataset plus rollback
// on error.
package memory

import (
	"context"
	"sync"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

type Memory struct {
	mu   sync.RWMutex
	data *dataset
}

func New() *Memory {
	return &Memory{data: &dataset{}}
}

// =============================================================================
// DATASET - Unlocked operations shared by the store and its tx view
// =============================================================================

type dataset struct {
	customers []billing.Customer
	stocks    []billing.Stock
	orders    []billing.Order
	items     []billing.OrderItem
	shipments []billing.Shipment
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		customers: append([]billing.Customer(nil), d.customers...),
		stocks:    append([]billing.Stock(nil), d.stocks...),
		orders:    append([]billing.Order(nil), d.orders...),
		items:     append([]billing.OrderItem(nil), d.items...),
		shipments: append([]billing.Shipment(nil), d.shipments...),
	}
	return c
}

func (d *dataset) getCustomer(id billing.CustomerID) *billing.Customer {
	for i := range d.customers {
		if d.customers[i].ID == id {
			c := d.customers[i]
			return &c
		}
	}
	return nil
}

func (d *dataset) saveCustomer(c billing.Customer) {
	for i := range d.customers {
		if d.customers[i].ID == c.ID {
			d.customers[i] = c
			return
		}
	}
	d.customers = append(d.customers, c)
}

func (d *dataset) deleteCustomer(id billing.CustomerID) {
	for i := range d.customers {
		if d.customers[i].ID == id {
			d.customers = append(d.customers[:i], d.customers[i+1:]...)
			return
		}
	}
}

func (d *dataset) getStock(id billing.StockID) *billing.Stock {
	for i := range d.stocks {
		if d.stocks[i].ID == id {
			s := d.stocks[i]
			return &s
		}
	}
	return nil
}

func (d *dataset) saveStock(s billing.Stock) {
	for i := range d.stocks {
		if d.stocks[i].ID == s.ID {
			d.stocks[i] = s
			return
		}
	}
	d.stocks = append(d.stocks, s)
}

func (d *dataset) deleteStock(id billing.StockID) {
	for i := range d.stocks {
		if d.stocks[i].ID == id {
			d.stocks = append(d.stocks[:i], d.stocks[i+1:]...)
			return
		}
	}
}

func (d *dataset) getOrder(id billing.OrderID) *billing.Order {
	for i := range d.orders {
		if d.orders[i].ID == id {
			o := d.orders[i]
			return &o
		}
	}
	return nil
}

func (d *dataset) saveOrder(o billing.Order) {
	for i := range d.orders {
		if d.orders[i].ID == o.ID {
			d.orders[i] = o
			return
		}
	}
	d.orders = append(d.orders, o)
}

func (d *dataset) deleteOrder(id billing.OrderID) {
	for i := range d.orders {
		if d.orders[i].ID == id {
			d.orders = append(d.orders[:i], d.orders[i+1:]...)
			break
		}
	}
	// Cascade items.
	kept := d.items[:0]
	for _, item := range d.items {
		if item.OrderID != id {
			kept = append(kept, item)
		}
	}
	d.items = append([]billing.OrderItem(nil), kept...)
}

func (d *dataset) saveItem(item billing.OrderItem) {
	for i := range d.items {
		if d.items[i].ID == item.ID {
			d.items[i] = item
			return
		}
	}
	d.items = append(d.items, item)
}

func (d *dataset) getShipment(id billing.ShipmentID) *billing.Shipment {
	for i := range d.shipments {
		if d.shipments[i].ID == id {
			sh := d.shipments[i]
			return &sh
		}
	}
	return nil
}

func (d *dataset) saveShipment(sh billing.Shipment) {
	for i := range d.shipments {
		if d.shipments[i].ID == sh.ID {
			d.shipments[i] = sh
			return
		}
	}
	d.shipments = append(d.shipments, sh)
}

func (d *dataset) deleteShipment(id billing.ShipmentID) {
	for i := range d.shipments {
		if d.shipments[i].ID == id {
			d.shipments = append(d.shipments[:i], d.shipments[i+1:]...)
			return
		}
	}
}

func (d *dataset) itemsByOrder(id billing.OrderID) []billing.OrderItem {
	var out []billing.OrderItem
	for _, item := range d.items {
		if item.OrderID == id {
			out = append(out, item)
		}
	}
	return out
}

// itemsByCustomer flattens per-order then per-item, both in creation order.
func (d *dataset) itemsByCustomer(id billing.CustomerID) []billing.OrderItem {
	var out []billing.OrderItem
	for _, o := range d.orders {
		if o.CustomerID == id {
			out = append(out, d.itemsByOrder(o.ID)...)
		}
	}
	return out
}

func (d *dataset) itemsByStock(id billing.StockID) []billing.OrderItem {
	var out []billing.OrderItem
	for _, item := range d.items {
		if item.StockID == id {
			out = append(out, item)
		}
	}
	return out
}

func (d *dataset) counts(lowStockBelow int) rental.Counts {
	low := 0
	for _, s := range d.stocks {
		if s.Quantity < lowStockBelow {
			low++
		}
	}
	return rental.Counts{
		Stocks:    len(d.stocks),
		Customers: len(d.customers),
		Orders:    len(d.orders),
		Shipments: len(d.shipments),
		LowStock:  low,
	}
}

// =============================================================================
// STORE INTERFACE (locked)
// =============================================================================

func (m *Memory) GetCustomer(_ context.Context, id billing.CustomerID) (*billing.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getCustomer(id), nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]billing.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]billing.Customer(nil), m.data.customers...), nil
}

func (m *Memory) SaveCustomer(_ context.Context, c billing.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveCustomer(c)
	return nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id billing.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.deleteCustomer(id)
	return nil
}

func (m *Memory) GetStock(_ context.Context, id billing.StockID) (*billing.Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getStock(id), nil
}

func (m *Memory) ListStock(_ context.Context) ([]billing.Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]billing.Stock(nil), m.data.stocks...), nil
}

func (m *Memory) SaveStock(_ context.Context, s billing.Stock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveStock(s)
	return nil
}

func (m *Memory) DeleteStock(_ context.Context, id billing.StockID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.deleteStock(id)
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id billing.OrderID) (*billing.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getOrder(id), nil
}

func (m *Memory) ListOrdersByCustomer(_ context.Context, id billing.CustomerID) ([]billing.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Order
	for _, o := range m.data.orders {
		if o.CustomerID == id {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) ListOrders(_ context.Context) ([]billing.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]billing.Order(nil), m.data.orders...), nil
}

func (m *Memory) SaveOrder(_ context.Context, o billing.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveOrder(o)
	return nil
}

func (m *Memory) DeleteOrder(_ context.Context, id billing.OrderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.deleteOrder(id)
	return nil
}

func (m *Memory) ListItemsByOrder(_ context.Context, id billing.OrderID) ([]billing.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.itemsByOrder(id), nil
}

func (m *Memory) ListItemsByCustomer(_ context.Context, id billing.CustomerID) ([]billing.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.itemsByCustomer(id), nil
}

func (m *Memory) ListItemsByStock(_ context.Context, id billing.StockID) ([]billing.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.itemsByStock(id), nil
}

func (m *Memory) SaveOrderItem(_ context.Context, item billing.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveItem(item)
	return nil
}

func (m *Memory) GetShipment(_ context.Context, id billing.ShipmentID) (*billing.Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getShipment(id), nil
}

func (m *Memory) ListShipments(_ context.Context) ([]billing.Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]billing.Shipment(nil), m.data.shipments...), nil
}

func (m *Memory) SaveShipment(_ context.Context, sh billing.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.saveShipment(sh)
	return nil
}

func (m *Memory) DeleteShipment(_ context.Context, id billing.ShipmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.deleteShipment(id)
	return nil
}

func (m *Memory) Counts(_ context.Context, lowStockBelow int) (rental.Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.counts(lowStockBelow), nil
}

// WithTx executes fn against an unlocked view under the write lock,
// restoring a snapshot if fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(rental.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&txView{data: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// =============================================================================
// TX VIEW - Store without locking, for use inside WithTx
// =============================================================================

type txView struct {
	data *dataset
}

func (v *txView) GetCustomer(_ context.Context, id billing.CustomerID) (*billing.Customer, error) {
	return v.data.getCustomer(id), nil
}

func (v *txView) ListCustomers(_ context.Context) ([]billing.Customer, error) {
	return append([]billing.Customer(nil), v.data.customers...), nil
}

func (v *txView) SaveCustomer(_ context.Context, c billing.Customer) error {
	v.data.saveCustomer(c)
	return nil
}

func (v *txView) DeleteCustomer(_ context.Context, id billing.CustomerID) error {
	v.data.deleteCustomer(id)
	return nil
}

func (v *txView) GetStock(_ context.Context, id billing.StockID) (*billing.Stock, error) {
	return v.data.getStock(id), nil
}

func (v *txView) ListStock(_ context.Context) ([]billing.Stock, error) {
	return append([]billing.Stock(nil), v.data.stocks...), nil
}

func (v *txView) SaveStock(_ context.Context, s billing.Stock) error {
	v.data.saveStock(s)
	return nil
}

func (v *txView) DeleteStock(_ context.Context, id billing.StockID) error {
	v.data.deleteStock(id)
	return nil
}

func (v *txView) GetOrder(_ context.Context, id billing.OrderID) (*billing.Order, error) {
	return v.data.getOrder(id), nil
}

func (v *txView) ListOrdersByCustomer(_ context.Context, id billing.CustomerID) ([]billing.Order, error) {
	var out []billing.Order
	for _, o := range v.data.orders {
		if o.CustomerID == id {
			out = append(out, o)
		}
	}
	return out, nil
}

func (v *txView) ListOrders(_ context.Context) ([]billing.Order, error) {
	return append([]billing.Order(nil), v.data.orders...), nil
}

func (v *txView) SaveOrder(_ context.Context, o billing.Order) error {
	v.data.saveOrder(o)
	return nil
}

func (v *txView) DeleteOrder(_ context.Context, id billing.OrderID) error {
	v.data.deleteOrder(id)
	return nil
}

func (v *txView) ListItemsByOrder(_ context.Context, id billing.OrderID) ([]billing.OrderItem, error) {
	return v.data.itemsByOrder(id), nil
}

func (v *txView) ListItemsByCustomer(_ context.Context, id billing.CustomerID) ([]billing.OrderItem, error) {
	return v.data.itemsByCustomer(id), nil
}

func (v *txView) ListItemsByStock(_ context.Context, id billing.StockID) ([]billing.OrderItem, error) {
	return v.data.itemsByStock(id), nil
}

func (v *txView) SaveOrderItem(_ context.Context, item billing.OrderItem) error {
	v.data.saveItem(item)
	return nil
}

func (v *txView) GetShipment(_ context.Context, id billing.ShipmentID) (*billing.Shipment, error) {
	return v.data.getShipment(id), nil
}

func (v *txView) ListShipments(_ context.Context) ([]billing.Shipment, error) {
	return append([]billing.Shipment(nil), v.data.shipments...), nil
}

func (v *txView) SaveShipment(_ context.Context, sh billing.Shipment) error {
	v.data.saveShipment(sh)
	return nil
}

func (v *txView) DeleteShipment(_ context.Context, id billing.ShipmentID) error {
	v.data.deleteShipment(id)
	return nil
}

func (v *txView) Counts(_ context.Context, lowStockBelow int) (rental.Counts, error) {
	return v.data.counts(lowStockBelow), nil
}

// WithTx nested inside a transaction just runs fn in the same transaction.
func (v *txView) WithTx(ctx context.Context, fn func(rental.Store) error) error {
	return fn(v)
}
