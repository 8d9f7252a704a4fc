package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	return billing.MustDecimal(s)
}

func item(id string, total string) billing.OrderItem {
	return billing.OrderItem{
		ID:         billing.OrderItemID(id),
		TotalPrice: money(total),
	}
}

// =============================================================================
// ADVANCE SWEEP TESTS
// =============================================================================

func TestAllocate_AdvanceCoversAllItems_RemainderIsLastItemBonus(t *testing.T) {
	// GIVEN: Advance 5000, three items totaling 4500
	// WHEN: Sweeping the advance across the items in order
	// THEN: All pendings are zero and the last item holds bonus 500

	items := []billing.OrderItem{
		item("a", "2000"),
		item("b", "1500"),
		item("c", "1000"),
	}

	allocs := billing.Allocate(money("5000"), items)

	for i, a := range allocs {
		if !a.Pending.IsZero() {
			t.Errorf("item %d: expected zero pending, got %v", i, a.Pending)
		}
	}
	if !allocs[0].Bonus.IsZero() || !allocs[1].Bonus.IsZero() {
		t.Errorf("only the last item may carry a bonus")
	}
	if !allocs[2].Bonus.Equal(money("500")) {
		t.Errorf("expected bonus 500 on last item, got %v", allocs[2].Bonus)
	}
}

func TestAllocate_AdvanceRunsOut_MidSweep(t *testing.T) {
	// GIVEN: Advance 2500 against items 2000, 1500, 1000
	// WHEN: Sweeping
	// THEN: First item covered, second carries the shortfall, third is
	//       fully pending, and no item holds a bonus

	items := []billing.OrderItem{
		item("a", "2000"),
		item("b", "1500"),
		item("c", "1000"),
	}

	allocs := billing.Allocate(money("2500"), items)

	if !allocs[0].Pending.IsZero() {
		t.Errorf("first item should be covered, pending %v", allocs[0].Pending)
	}
	if !allocs[1].Pending.Equal(money("1000")) {
		t.Errorf("second item: expected pending 1000, got %v", allocs[1].Pending)
	}
	if !allocs[2].Pending.Equal(money("1000")) {
		t.Errorf("third item: expected pending 1000, got %v", allocs[2].Pending)
	}
	for i, a := range allocs {
		if !a.Bonus.IsZero() {
			t.Errorf("item %d: expected zero bonus, got %v", i, a.Bonus)
		}
	}
}

func TestAllocate_ExactCover_NoBonusNoPending(t *testing.T) {
	// GIVEN: Advance exactly equal to the item total
	// WHEN: Sweeping
	// THEN: Zero pending and zero bonus everywhere

	allocs := billing.Allocate(money("3500"), []billing.OrderItem{
		item("a", "2000"),
		item("b", "1500"),
	})

	for i, a := range allocs {
		if !a.Pending.IsZero() || !a.Bonus.IsZero() {
			t.Errorf("item %d: expected all-zero, got pending %v bonus %v", i, a.Pending, a.Bonus)
		}
	}
}

func TestAllocate_ZeroAdvance_EveryItemFullyPending(t *testing.T) {
	allocs := billing.Allocate(decimal.Zero, []billing.OrderItem{
		item("a", "800"),
		item("b", "200"),
	})

	if !allocs[0].Pending.Equal(money("800")) || !allocs[1].Pending.Equal(money("200")) {
		t.Errorf("expected full pendings, got %v and %v", allocs[0].Pending, allocs[1].Pending)
	}
}

func TestAllocate_NoItems_NoAllocations(t *testing.T) {
	// An advance with nothing to spend it on produces an empty result;
	// there is no item to attach the bonus to.
	allocs := billing.Allocate(money("1000"), nil)
	if len(allocs) != 0 {
		t.Errorf("expected no allocations, got %d", len(allocs))
	}
}

func TestAllocate_Idempotent(t *testing.T) {
	// GIVEN: A fixed advance and item list
	// WHEN: Sweeping twice
	// THEN: Identical results; the sweep reads state, it never accumulates

	items := []billing.OrderItem{
		item("a", "2000"),
		item("b", "700"),
	}
	advance := money("2400")

	first := billing.Allocate(advance, items)
	second := billing.Allocate(advance, items)

	if len(first) != len(second) {
		t.Fatalf("allocation lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Pending.Equal(second[i].Pending) || !first[i].Bonus.Equal(second[i].Bonus) {
			t.Errorf("item %d: results differ across runs", i)
		}
	}
}

func TestAllocate_SingleBonusAlways(t *testing.T) {
	// Sweep outputs never carry more than one non-zero bonus, whatever the
	// advance is.
	items := []billing.OrderItem{
		item("a", "100"),
		item("b", "100"),
		item("c", "100"),
	}

	for _, advance := range []string{"0", "50", "100", "250", "300", "1000"} {
		allocs := billing.Allocate(money(advance), items)
		if err := billing.CheckSingleBonus(allocs); err != nil {
			t.Errorf("advance %s: %v", advance, err)
		}
	}
}

// =============================================================================
// INVARIANT CHECK TESTS
// =============================================================================

func TestCheckItemTotal(t *testing.T) {
	good := billing.OrderItem{Quantity: 3, UnitPrice: money("50"), TotalPrice: money("150")}
	if err := billing.CheckItemTotal(good); err != nil {
		t.Errorf("consistent item flagged: %v", err)
	}

	bad := billing.OrderItem{Quantity: 3, UnitPrice: money("50"), TotalPrice: money("149")}
	if err := billing.CheckItemTotal(bad); err == nil {
		t.Error("inconsistent total not flagged")
	}
}

func TestCheckSingleBonus_TwoBonuses_Flagged(t *testing.T) {
	allocs := []billing.ItemAllocation{
		{Bonus: money("10")},
		{Bonus: money("20")},
	}
	err := billing.CheckSingleBonus(allocs)
	if err == nil {
		t.Fatal("double bonus not flagged")
	}
	if billing.IsClientError(err) {
		t.Error("invariant failure classified as a client error")
	}
}

func TestCheckAdvance_Negative_Flagged(t *testing.T) {
	c := billing.Customer{Advance: money("-1")}
	if err := billing.CheckAdvance(c); err == nil {
		t.Error("negative advance not flagged")
	}
}

func TestCheckStock_Negative_Flagged(t *testing.T) {
	if err := billing.CheckStock(billing.Stock{Quantity: -1}); err == nil {
		t.Error("negative stock not flagged")
	}
}
