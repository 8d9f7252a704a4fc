/*
allocation.go - Customer-wide advance sweep

PURPOSE:
  Distributes a customer's advance balance across all of their order items,
  in per-order then per-item creation order, producing a pending and bonus
  amount per item. This is the display-time estimate recomputed on demand
  (the "check" operation); return reconciliation in reconcile.go is the
  authoritative order-scoped settlement and uses a different rule. The two
  passes deliberately do not agree and must not be unified.

ALGORITHM:
  1. Walk items in creation order with remaining = advance.
  2. An item fully covered by remaining gets pending 0; a partially or
     uncovered item gets pending = total - remaining and zeroes remaining.
  3. After the sweep, any unconsumed remainder becomes the bonus of the
     LAST item in the sequence.

  The whole computation is a pure function of (advance, items): rerunning
  it with unchanged inputs yields identical output, with no hidden
  accumulation.
*/
package billing

import "github.com/shopspring/decimal"

// ItemAllocation is one row of a recomputed allocation: the item plus its
// freshly computed pending and bonus amounts.
type ItemAllocation struct {
	Item    OrderItem
	Pending decimal.Decimal
	Bonus   decimal.Decimal
}

// Allocate sweeps advance across items in order. Items must already be in
// per-order then per-item creation order; the caller is responsible for
// flattening across orders.
//
// At most one allocation (the last) can carry a non-zero bonus, and only
// when the sweep left the advance partially unconsumed.
func Allocate(advance decimal.Decimal, items []OrderItem) []ItemAllocation {
	allocs := make([]ItemAllocation, len(items))
	remaining := advance

	for i, item := range items {
		if remaining.GreaterThanOrEqual(item.TotalPrice) {
			allocs[i] = ItemAllocation{Item: item, Pending: decimal.Zero, Bonus: decimal.Zero}
			remaining = remaining.Sub(item.TotalPrice)
		} else {
			allocs[i] = ItemAllocation{Item: item, Pending: item.TotalPrice.Sub(remaining), Bonus: decimal.Zero}
			remaining = decimal.Zero
		}
	}

	// Unconsumed advance surfaces as a bonus on the most recently added item.
	if len(allocs) > 0 {
		allocs[len(allocs)-1].Bonus = remaining
	}
	return allocs
}
