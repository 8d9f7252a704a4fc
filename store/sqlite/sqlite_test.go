package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
	"github.com/warp/rental-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCustomer(id string) billing.Customer {
	return billing.Customer{
		ID:        billing.CustomerID(id),
		Name:      "Ram Constructions",
		Status:    "Processing",
		Advance:   billing.MustDecimal("5000.50"),
		CreatedAt: time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testStock(id string) billing.Stock {
	return billing.Stock{
		ID:        billing.StockID(id),
		Name:      "Scaffolding Frame",
		Category:  "Support",
		Quantity:  120,
		UnitPrice: billing.MustDecimal("150"),
	}
}

func testOrder(id, customerID string) billing.Order {
	return billing.Order{
		ID:         billing.OrderID(id),
		CustomerID: billing.CustomerID(customerID),
		OrderDate:  time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testItem(id, orderID, stockID string) billing.OrderItem {
	return billing.OrderItem{
		ID:            billing.OrderItemID(id),
		OrderID:       billing.OrderID(orderID),
		StockID:       billing.StockID(stockID),
		Quantity:      20,
		UnitPrice:     billing.MustDecimal("150"),
		TotalPrice:    billing.MustDecimal("3000"),
		PendingAmount: billing.MustDecimal("3000"),
		BonusAmount:   billing.MustDecimal("0"),
		FineAmount:    billing.MustDecimal("0"),
		Status:        billing.StatusPending,
	}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestCustomerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testCustomer("c1")
	require.NoError(t, store.SaveCustomer(ctx, want))

	got, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, got.Advance.Equal(want.Advance), "decimal string survives the TEXT column")
	assert.False(t, got.AdvanceClosed)
	assert.True(t, got.CreatedAt.Equal(want.CreatedAt))
}

func TestGetMissing_ReturnsNilNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetCustomer(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got, "missing record is (nil, nil), not an error")
}

func TestOrderReturnDate_NullRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer("c1")))
	order := testOrder("o1", "c1")
	require.NoError(t, store.SaveOrder(ctx, order))

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.ReturnDate)

	rd := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	order.ReturnDate = &rd
	require.NoError(t, store.SaveOrder(ctx, order))

	got, err = store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, got.ReturnDate)
	assert.True(t, got.ReturnDate.Equal(rd))
}

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestListItemsByCustomer_CreationOrderSurvivesUpdates(t *testing.T) {
	// GIVEN: Two orders with items created in a known sequence
	// WHEN: The first item is updated after the others exist
	// THEN: The per-customer flattening still lists items in creation
	//       order - updates must not reorder

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer("c1")))
	require.NoError(t, store.SaveStock(ctx, testStock("s1")))
	require.NoError(t, store.SaveOrder(ctx, testOrder("o1", "c1")))
	require.NoError(t, store.SaveOrder(ctx, testOrder("o2", "c1")))

	require.NoError(t, store.SaveOrderItem(ctx, testItem("i1", "o1", "s1")))
	require.NoError(t, store.SaveOrderItem(ctx, testItem("i2", "o1", "s1")))
	require.NoError(t, store.SaveOrderItem(ctx, testItem("i3", "o2", "s1")))

	// Updating i1 must keep its position.
	updated := testItem("i1", "o1", "s1")
	updated.PendingAmount = billing.MustDecimal("0")
	require.NoError(t, store.SaveOrderItem(ctx, updated))

	items, err := store.ListItemsByCustomer(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, billing.OrderItemID("i1"), items[0].ID)
	assert.Equal(t, billing.OrderItemID("i2"), items[1].ID)
	assert.Equal(t, billing.OrderItemID("i3"), items[2].ID)
}

func TestDeleteOrder_CascadesItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer("c1")))
	require.NoError(t, store.SaveStock(ctx, testStock("s1")))
	require.NoError(t, store.SaveOrder(ctx, testOrder("o1", "c1")))
	require.NoError(t, store.SaveOrderItem(ctx, testItem("i1", "o1", "s1")))

	require.NoError(t, store.DeleteOrder(ctx, "o1"))

	items, err := store.ListItemsByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A saved customer
	// WHEN: A transaction mutates it and then fails
	// THEN: The mutation is rolled back

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer("c1")))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(st rental.Store) error {
		c, err := st.GetCustomer(ctx, "c1")
		if err != nil {
			return err
		}
		c.Advance = billing.MustDecimal("999999")
		if err := st.SaveCustomer(ctx, *c); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.Advance.Equal(billing.MustDecimal("5000.50")), "advance: %v", got.Advance)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStock(ctx, testStock("s1")))

	err := store.WithTx(ctx, func(st rental.Store) error {
		s, err := st.GetStock(ctx, "s1")
		if err != nil {
			return err
		}
		s.Quantity = 77
		return st.SaveStock(ctx, *s)
	})
	require.NoError(t, err)

	got, err := store.GetStock(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 77, got.Quantity)
}

// =============================================================================
// COUNTS
// =============================================================================

func TestCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer("c1")))
	require.NoError(t, store.SaveStock(ctx, testStock("s1")))
	low := testStock("s2")
	low.Quantity = 4
	require.NoError(t, store.SaveStock(ctx, low))
	require.NoError(t, store.SaveOrder(ctx, testOrder("o1", "c1")))

	counts, err := store.Counts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, rental.Counts{Stocks: 2, Customers: 1, Orders: 1, Shipments: 0, LowStock: 1}, counts)
}
