// invariants.go - Defensive checks over recomputed state.
//
// These should never fire under correct use, but the engine checks them
// rather than assuming. A failure surfaces as ErrInvariantViolation.
package billing

import "github.com/shopspring/decimal"

// CheckItemTotal verifies total_price = quantity x unit_price.
func CheckItemTotal(item OrderItem) error {
	want := ItemTotal(item.Quantity, item.UnitPrice)
	if !item.TotalPrice.Equal(want) {
		return &InvariantError{
			Invariant: "total_price",
			Message:   "total_price does not equal quantity x unit_price",
			Amount:    item.TotalPrice,
		}
	}
	return nil
}

// CheckSingleBonus verifies that at most one entry of a flattened
// allocation carries a non-zero bonus.
func CheckSingleBonus(allocs []ItemAllocation) error {
	count := 0
	for _, a := range allocs {
		if !a.Bonus.IsZero() {
			count++
			if count > 1 {
				return &InvariantError{
					Invariant: "single_bonus",
					Message:   "more than one item carries a bonus",
					Amount:    a.Bonus,
				}
			}
		}
	}
	return nil
}

// CheckAdvance verifies the advance balance is never negative.
func CheckAdvance(c Customer) error {
	if c.Advance.LessThan(decimal.Zero) {
		return &InvariantError{
			Invariant: "advance_non_negative",
			Message:   "customer advance is negative",
			Amount:    c.Advance,
		}
	}
	return nil
}

// CheckStock verifies a stock counter is never negative.
func CheckStock(s Stock) error {
	if s.Quantity < 0 {
		return &InvariantError{
			Invariant: "stock_non_negative",
			Message:   "stock quantity is negative",
			Amount:    decimal.NewFromInt(int64(s.Quantity)),
		}
	}
	return nil
}
