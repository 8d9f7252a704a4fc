/*
Package rental is the operation layer of the rental engine.

PURPOSE:
  Exposes the business operations - create/edit/delete orders, add items,
  return orders, settle advances, move stock via shipments - on top of a
  record Store and the pure computations in billing. Each operation is
  synchronous: read current state, compute, write, under an identity-keyed
  mutex and a store transaction. There is no background recomputation.

OPERATION SHAPE:
  1. Validate input (fail fast with billing.ValidationError)
  2. Lock the customer/stock records the operation mutates
  3. Inside Store.WithTx: load, call into billing, save
  4. Return the result or a classified error

  Financial fields are always recomputed in full from current state; no
  incremental updates.

SEE ALSO:
  - billing: the pure allocation/advance/reconciliation rules
  - store.go: the Store contract this package consumes
  - shipments.go, records.go: the remaining operations
*/
package rental

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/billing"
)

// Service implements the rental operations over a Store.
type Service struct {
	store Store
	locks *lockTable
}

// NewService creates a service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, locks: newLockTable()}
}

func newID() string { return uuid.NewString() }

// =============================================================================
// ORDER OPERATIONS
// =============================================================================

// CreateOrder creates an order for a customer, folding an optional advance
// amount into the customer's balance first. Pass decimal.Zero for no
// advance.
func (s *Service) CreateOrder(ctx context.Context, customerID billing.CustomerID, orderDate time.Time, advance decimal.Decimal) (billing.Order, error) {
	if advance.IsNegative() {
		return billing.Order{}, &billing.ValidationError{Field: "advance", Message: "must not be negative"}
	}

	unlock := s.locks.Lock(customerKey(string(customerID)))
	defer unlock()

	var order billing.Order
	err := s.store.WithTx(ctx, func(st Store) error {
		customer, err := st.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(customerID)}
		}

		prior, err := st.ListOrdersByCustomer(ctx, customerID)
		if err != nil {
			return err
		}

		billing.ApplyAdvance(customer, advance, len(prior))
		if err := billing.CheckAdvance(*customer); err != nil {
			return err
		}
		if err := st.SaveCustomer(ctx, *customer); err != nil {
			return err
		}

		order = billing.Order{
			ID:         billing.OrderID(newID()),
			CustomerID: customerID,
			OrderDate:  orderDate,
			CreatedAt:  time.Now().UTC(),
		}
		return st.SaveOrder(ctx, order)
	})
	return order, err
}

// EditOrder updates an order's date and overwrites the customer's advance
// with the submitted amount.
func (s *Service) EditOrder(ctx context.Context, orderID billing.OrderID, orderDate time.Time, advance decimal.Decimal) (billing.Order, error) {
	if advance.IsNegative() {
		return billing.Order{}, &billing.ValidationError{Field: "advance", Message: "must not be negative"}
	}

	order, err := s.lookupOrder(ctx, orderID)
	if err != nil {
		return billing.Order{}, err
	}

	unlock := s.locks.Lock(customerKey(string(order.CustomerID)))
	defer unlock()

	var updated billing.Order
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return &billing.NotFoundError{Kind: "order", ID: string(orderID)}
		}

		customer, err := st.GetCustomer(ctx, current.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(current.CustomerID)}
		}

		customer.Advance = advance
		if err := st.SaveCustomer(ctx, *customer); err != nil {
			return err
		}

		current.OrderDate = orderDate
		updated = *current
		return st.SaveOrder(ctx, *current)
	})
	return updated, err
}

// AddOrderItem appends a priced item to an order, snapshotting the unit
// price from stock and decrementing the stock counter. status defaults to
// Pending when empty.
func (s *Service) AddOrderItem(ctx context.Context, orderID billing.OrderID, stockID billing.StockID, quantity int, status string) (billing.OrderItem, error) {
	if quantity < 1 {
		return billing.OrderItem{}, &billing.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	if status == "" {
		status = billing.StatusPending
	}

	unlock := s.locks.Lock(stockKey(string(stockID)))
	defer unlock()

	var item billing.OrderItem
	err := s.store.WithTx(ctx, func(st Store) error {
		order, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &billing.NotFoundError{Kind: "order", ID: string(orderID)}
		}

		stock, err := st.GetStock(ctx, stockID)
		if err != nil {
			return err
		}
		if stock == nil {
			return &billing.NotFoundError{Kind: "stock", ID: string(stockID)}
		}
		if stock.Quantity < quantity {
			return &billing.InsufficientStockError{StockID: stockID, Available: stock.Quantity, Requested: quantity}
		}

		total := billing.ItemTotal(quantity, stock.UnitPrice)
		item = billing.OrderItem{
			ID:            billing.OrderItemID(newID()),
			OrderID:       orderID,
			StockID:       stockID,
			Quantity:      quantity,
			UnitPrice:     stock.UnitPrice,
			TotalPrice:    total,
			PendingAmount: total, // full price until an allocation pass runs
			BonusAmount:   decimal.Zero,
			FineAmount:    decimal.Zero,
			Status:        status,
		}
		if err := billing.CheckItemTotal(item); err != nil {
			return err
		}

		stock.Quantity -= quantity
		if err := billing.CheckStock(*stock); err != nil {
			return err
		}
		if err := st.SaveStock(ctx, *stock); err != nil {
			return err
		}
		return st.SaveOrderItem(ctx, item)
	})
	return item, err
}

// DeleteOrder deletes an order and its items, reversing the order's total
// out of the customer's advance (floored at zero).
func (s *Service) DeleteOrder(ctx context.Context, orderID billing.OrderID) error {
	order, err := s.lookupOrder(ctx, orderID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(customerKey(string(order.CustomerID)))
	defer unlock()

	return s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return &billing.NotFoundError{Kind: "order", ID: string(orderID)}
		}

		customer, err := st.GetCustomer(ctx, current.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(current.CustomerID)}
		}

		items, err := st.ListItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.TotalPrice)
		}

		billing.ReverseAdvance(customer, total)
		if err := billing.CheckAdvance(*customer); err != nil {
			return err
		}
		if err := st.SaveCustomer(ctx, *customer); err != nil {
			return err
		}
		return st.DeleteOrder(ctx, orderID)
	})
}

// ReturnOrder marks an order returned, stamping usage on its items and
// applying the settlement rule. Re-returning a returned order is rejected.
func (s *Service) ReturnOrder(ctx context.Context, orderID billing.OrderID, returnDate time.Time) (billing.Order, error) {
	order, err := s.lookupOrder(ctx, orderID)
	if err != nil {
		return billing.Order{}, err
	}

	unlock := s.locks.Lock(customerKey(string(order.CustomerID)))
	defer unlock()

	var returned billing.Order
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return &billing.NotFoundError{Kind: "order", ID: string(orderID)}
		}
		if current.Returned() {
			return &billing.ValidationError{Field: "order", Message: "already returned"}
		}

		customer, err := st.GetCustomer(ctx, current.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(current.CustomerID)}
		}

		items, err := st.ListItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		settled, err := billing.ReconcileReturn(*customer, *current, items, returnDate)
		if err != nil {
			return err
		}
		for _, item := range settled {
			if err := st.SaveOrderItem(ctx, item); err != nil {
				return err
			}
		}

		rd := returnDate
		current.ReturnDate = &rd
		returned = *current
		return st.SaveOrder(ctx, *current)
	})
	return returned, err
}

// SettleAdvance closes the customer's current advance cycle. The numeric
// balance is untouched.
func (s *Service) SettleAdvance(ctx context.Context, customerID billing.CustomerID) error {
	unlock := s.locks.Lock(customerKey(string(customerID)))
	defer unlock()

	return s.store.WithTx(ctx, func(st Store) error {
		customer, err := st.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &billing.NotFoundError{Kind: "customer", ID: string(customerID)}
		}
		billing.Settle(customer)
		return st.SaveCustomer(ctx, *customer)
	})
}

// RecomputeCustomerAllocation runs the customer-wide advance sweep over
// all of the customer's items. Read-only: nothing is persisted; the
// result is a display-time estimate.
func (s *Service) RecomputeCustomerAllocation(ctx context.Context, customerID billing.CustomerID) ([]billing.ItemAllocation, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, &billing.NotFoundError{Kind: "customer", ID: string(customerID)}
	}

	items, err := s.store.ListItemsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	allocs := billing.Allocate(customer.Advance, items)
	if err := billing.CheckSingleBonus(allocs); err != nil {
		return nil, err
	}
	return allocs, nil
}

// lookupOrder resolves an order outside a transaction, for lock keying.
func (s *Service) lookupOrder(ctx context.Context, orderID billing.OrderID) (*billing.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &billing.NotFoundError{Kind: "order", ID: string(orderID)}
	}
	return order, nil
}
