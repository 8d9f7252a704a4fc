/*
advance.go - Advance balance lifecycle

PURPOSE:
  Maintains Customer.Advance and Customer.AdvanceClosed across the
  customer's order history. An advance is a prepayment consumed against
  order totals; settlement closes the current cycle so the next advance
  starts fresh.

ACCUMULATION RULE:
  Only the first order of a still-open advance cycle may add to the
  balance. A later order while the cycle is open does NOT add its amount.
  This asymmetry is preserved from the system's historical behavior - see
  DESIGN.md - and is intentional here, not a bug to fix.

SEE ALSO:
  - allocation.go: how the accumulated advance is spent across items
  - reconcile.go: order-scoped settlement against the advance
*/
package billing

import "github.com/shopspring/decimal"

// ApplyAdvance folds a newly supplied advance amount into the customer
// when an order is created. priorOrders is the number of orders the
// customer already has.
//
// Rules, in priority order:
//   - non-positive amount: no-op
//   - no prior orders and cycle open: advance accumulates
//   - cycle closed: advance resets to amount and the cycle reopens
//   - otherwise (prior orders, cycle open): amount is dropped
func ApplyAdvance(c *Customer, amount decimal.Decimal, priorOrders int) {
	if !amount.IsPositive() {
		return
	}
	switch {
	case !c.AdvanceClosed && priorOrders == 0:
		c.Advance = c.Advance.Add(amount)
	case c.AdvanceClosed:
		c.Advance = amount
		c.AdvanceClosed = false
	}
}

// Settle closes the current advance cycle. The numeric balance is kept;
// only the flag changes. Invoked by an explicit operator action, decoupled
// from any order event.
func Settle(c *Customer) {
	c.AdvanceClosed = true
}

// ReverseAdvance subtracts a deleted order's total from the advance,
// floored at zero; the advance is never negative.
func ReverseAdvance(c *Customer, orderTotal decimal.Decimal) {
	if c.Advance.GreaterThanOrEqual(orderTotal) {
		c.Advance = c.Advance.Sub(orderTotal)
	} else {
		c.Advance = decimal.Zero
	}
}
