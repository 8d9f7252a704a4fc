/*
reconcile.go - Return-time settlement

PURPOSE:
  Finalizes one order when it is returned: stamps usage duration on every
  item, discards any prior allocation, and applies the two-outcome
  bonus/pending rule against the full order total. The result lands on the
  FIRST item of the order only; all other items keep zeroes. This is the
  authoritative, order-scoped settlement - distinct by design from the
  customer-wide sweep in allocation.go, which credits the LAST item.

STATE MACHINE:
  An order is Open until its return date is set, then Returned. The
  transition is irreversible; there is no un-return.
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusAndPending applies the two-outcome settlement rule: whichever of
// advance and total is larger determines the single non-zero output.
func BonusAndPending(advance, totalPrice decimal.Decimal) (bonus, pending decimal.Decimal) {
	switch {
	case advance.GreaterThan(totalPrice):
		return advance.Sub(totalPrice), decimal.Zero
	case totalPrice.GreaterThan(advance):
		return decimal.Zero, totalPrice.Sub(advance)
	default:
		return decimal.Zero, decimal.Zero
	}
}

// UsedDays returns the whole-day difference between the order date and the
// return date, date-only. A return date before the order date is rejected.
func UsedDays(orderDate, returnDate time.Time) (int, error) {
	od := civilDate(orderDate)
	rd := civilDate(returnDate)
	if rd.Before(od) {
		return 0, &ValidationError{Field: "return_date", Message: "precedes order date"}
	}
	return int(rd.Sub(od).Hours() / 24), nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReconcileReturn produces the settled copies of an order's items for the
// given return date:
//
//  1. Every item gets used days, the return date, and a zero fine (no fine
//     rule exists; the field is a fixed zero).
//  2. Prior bonus and pending amounts are cleared on every item.
//  3. The two-outcome rule against sum(total_price) and the customer's
//     advance lands on the first item only.
//
// The order's own return date is the caller's to set; this function only
// computes item state.
func ReconcileReturn(customer Customer, order Order, items []OrderItem, returnDate time.Time) ([]OrderItem, error) {
	used, err := UsedDays(order.OrderDate, returnDate)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	bonus, pending := BonusAndPending(customer.Advance, total)

	settled := make([]OrderItem, len(items))
	for i, item := range items {
		rd := returnDate
		item.UsedDays = used
		item.ReturnDate = &rd
		item.FineAmount = decimal.Zero
		item.BonusAmount = decimal.Zero
		item.PendingAmount = decimal.Zero
		settled[i] = item
	}
	if len(settled) > 0 {
		settled[0].BonusAmount = bonus
		settled[0].PendingAmount = pending
	}
	return settled, nil
}
