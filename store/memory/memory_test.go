package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
	"github.com/warp/rental-engine/store/memory"
)

func order(id, customerID string) billing.Order {
	return billing.Order{
		ID:         billing.OrderID(id),
		CustomerID: billing.CustomerID(customerID),
		OrderDate:  time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func item(id, orderID string) billing.OrderItem {
	return billing.OrderItem{
		ID:         billing.OrderItemID(id),
		OrderID:    billing.OrderID(orderID),
		TotalPrice: billing.MustDecimal("100"),
	}
}

func TestListItemsByCustomer_FlattensInCreationOrder(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, billing.Customer{ID: "c1"}))
	require.NoError(t, store.SaveOrder(ctx, order("o1", "c1")))
	require.NoError(t, store.SaveOrder(ctx, order("o2", "c1")))

	// Interleave creation across the two orders; flattening must still
	// group by order first.
	require.NoError(t, store.SaveOrderItem(ctx, item("i1", "o1")))
	require.NoError(t, store.SaveOrderItem(ctx, item("i3", "o2")))
	require.NoError(t, store.SaveOrderItem(ctx, item("i2", "o1")))

	items, err := store.ListItemsByCustomer(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, billing.OrderItemID("i1"), items[0].ID)
	assert.Equal(t, billing.OrderItemID("i2"), items[1].ID)
	assert.Equal(t, billing.OrderItemID("i3"), items[2].ID)
}

func TestWithTx_RollbackRestoresSnapshot(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveStock(ctx, billing.Stock{ID: "s1", Quantity: 10}))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(st rental.Store) error {
		if err := st.SaveStock(ctx, billing.Stock{ID: "s1", Quantity: 0}); err != nil {
			return err
		}
		if err := st.DeleteStock(ctx, "s1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetStock(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Quantity)
}

func TestDeleteOrder_CascadesItems(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveOrder(ctx, order("o1", "c1")))
	require.NoError(t, store.SaveOrderItem(ctx, item("i1", "o1")))
	require.NoError(t, store.SaveOrderItem(ctx, item("i2", "o1")))

	require.NoError(t, store.DeleteOrder(ctx, "o1"))

	items, err := store.ListItemsByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
