/*
records.go - Customer and stock record management

PURPOSE:
  Conventional CRUD for the two master records, with the referential
  guards the rest of the engine depends on: stock cannot be deleted while
  order items reference it, and a customer cannot be deleted while they
  have orders.
*/
package rental

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/billing"
)

// CustomerInput carries the operator-editable customer fields.
type CustomerInput struct {
	Name      string
	VehicleNo string
	Phone     string
	Address   string
}

// CreateCustomer creates a customer with a zero, open advance.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (billing.Customer, error) {
	if in.Name == "" {
		return billing.Customer{}, &billing.ValidationError{Field: "name", Message: "required"}
	}
	customer := billing.Customer{
		ID:        billing.CustomerID(newID()),
		Name:      in.Name,
		VehicleNo: in.VehicleNo,
		Phone:     in.Phone,
		Address:   in.Address,
		Status:    "Processing",
		Advance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return billing.Customer{}, err
	}
	return customer, nil
}

// UpdateCustomer edits the operator-editable fields; the advance and its
// flag are only touched by order and settlement operations.
func (s *Service) UpdateCustomer(ctx context.Context, id billing.CustomerID, in CustomerInput) (billing.Customer, error) {
	if in.Name == "" {
		return billing.Customer{}, &billing.ValidationError{Field: "name", Message: "required"}
	}

	unlock := s.locks.Lock(customerKey(string(id)))
	defer unlock()

	var updated billing.Customer
	err := s.store.WithTx(ctx, func(st Store) error {
		customer, err := st.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(id)}
		}
		customer.Name = in.Name
		customer.VehicleNo = in.VehicleNo
		customer.Phone = in.Phone
		customer.Address = in.Address
		updated = *customer
		return st.SaveCustomer(ctx, *customer)
	})
	return updated, err
}

// DeleteCustomer removes a customer without orders.
func (s *Service) DeleteCustomer(ctx context.Context, id billing.CustomerID) error {
	unlock := s.locks.Lock(customerKey(string(id)))
	defer unlock()

	return s.store.WithTx(ctx, func(st Store) error {
		customer, err := st.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(id)}
		}
		orders, err := st.ListOrdersByCustomer(ctx, id)
		if err != nil {
			return err
		}
		if len(orders) > 0 {
			return &billing.ValidationError{Field: "customer", Message: "has associated orders"}
		}
		return st.DeleteCustomer(ctx, id)
	})
}

// GetCustomer returns one customer.
func (s *Service) GetCustomer(ctx context.Context, id billing.CustomerID) (billing.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return billing.Customer{}, err
	}
	if customer == nil {
		return billing.Customer{}, &billing.NotFoundError{Kind: "customer", ID: string(id)}
	}
	return *customer, nil
}

// ListCustomers returns all customers.
func (s *Service) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	return s.store.ListCustomers(ctx)
}

// =============================================================================
// STOCK
// =============================================================================

// StockInput carries the operator-editable stock fields.
type StockInput struct {
	Name      string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (in StockInput) validate() error {
	if in.Name == "" {
		return &billing.ValidationError{Field: "name", Message: "required"}
	}
	if in.Quantity < 0 {
		return &billing.ValidationError{Field: "quantity", Message: "must not be negative"}
	}
	if in.UnitPrice.IsNegative() {
		return &billing.ValidationError{Field: "unit_price", Message: "must not be negative"}
	}
	return nil
}

// CreateStock creates a stock record.
func (s *Service) CreateStock(ctx context.Context, in StockInput) (billing.Stock, error) {
	if err := in.validate(); err != nil {
		return billing.Stock{}, err
	}
	stock := billing.Stock{
		ID:        billing.StockID(newID()),
		Name:      in.Name,
		Category:  in.Category,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
	}
	if err := s.store.SaveStock(ctx, stock); err != nil {
		return billing.Stock{}, err
	}
	return stock, nil
}

// UpdateStock overwrites a stock record, including its on-hand quantity.
func (s *Service) UpdateStock(ctx context.Context, id billing.StockID, in StockInput) (billing.Stock, error) {
	if err := in.validate(); err != nil {
		return billing.Stock{}, err
	}

	unlock := s.locks.Lock(stockKey(string(id)))
	defer unlock()

	var updated billing.Stock
	err := s.store.WithTx(ctx, func(st Store) error {
		stock, err := st.GetStock(ctx, id)
		if err != nil {
			return err
		}
		if stock == nil {
			return &billing.NotFoundError{Kind: "stock", ID: string(id)}
		}
		stock.Name = in.Name
		stock.Category = in.Category
		stock.Quantity = in.Quantity
		stock.UnitPrice = in.UnitPrice
		updated = *stock
		return st.SaveStock(ctx, *stock)
	})
	return updated, err
}

// DeleteStock removes a stock record not referenced by any order item.
func (s *Service) DeleteStock(ctx context.Context, id billing.StockID) error {
	unlock := s.locks.Lock(stockKey(string(id)))
	defer unlock()

	return s.store.WithTx(ctx, func(st Store) error {
		stock, err := st.GetStock(ctx, id)
		if err != nil {
			return err
		}
		if stock == nil {
			return &billing.NotFoundError{Kind: "stock", ID: string(id)}
		}
		items, err := st.ListItemsByStock(ctx, id)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			return &billing.ValidationError{Field: "stock", Message: "referenced by existing order items"}
		}
		return st.DeleteStock(ctx, id)
	})
}

// GetStock returns one stock record.
func (s *Service) GetStock(ctx context.Context, id billing.StockID) (billing.Stock, error) {
	stock, err := s.store.GetStock(ctx, id)
	if err != nil {
		return billing.Stock{}, err
	}
	if stock == nil {
		return billing.Stock{}, &billing.NotFoundError{Kind: "stock", ID: string(id)}
	}
	return *stock, nil
}

// ListStock returns all stock records.
func (s *Service) ListStock(ctx context.Context) ([]billing.Stock, error) {
	return s.store.ListStock(ctx)
}

// ListStockItems returns the order items referencing a stock record.
func (s *Service) ListStockItems(ctx context.Context, id billing.StockID) ([]billing.OrderItem, error) {
	stock, err := s.store.GetStock(ctx, id)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, &billing.NotFoundError{Kind: "stock", ID: string(id)}
	}
	return s.store.ListItemsByStock(ctx, id)
}

// =============================================================================
// ORDERS (read side) AND DASHBOARD
// =============================================================================

// GetOrder returns one order with its items.
func (s *Service) GetOrder(ctx context.Context, id billing.OrderID) (billing.Order, []billing.OrderItem, error) {
	order, err := s.lookupOrder(ctx, id)
	if err != nil {
		return billing.Order{}, nil, err
	}
	items, err := s.store.ListItemsByOrder(ctx, id)
	if err != nil {
		return billing.Order{}, nil, err
	}
	return *order, items, nil
}

// ListOrders returns all orders.
func (s *Service) ListOrders(ctx context.Context) ([]billing.Order, error) {
	return s.store.ListOrders(ctx)
}

// Dashboard returns record counts plus the number of stock records below
// the low-stock threshold.
func (s *Service) Dashboard(ctx context.Context, lowStockBelow int) (Counts, error) {
	return s.store.Counts(ctx, lowStockBelow)
}
