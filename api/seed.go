/*
seed.go - demo data loader

PURPOSE:
  Populates the store with a small, repeatable demo dataset through the
  service layer, so every engine rule (stock decrement, advance sweep)
  applies to the seeded records exactly as it would in production use.

  Intended for development and demos only. Calling it twice creates a
  second batch of records; it does not reset.
*/
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// LoadSeed loads the demo dataset.
// POST /api/seed
func (h *Handler) LoadSeed(w http.ResponseWriter, r *http.Request) {
	if err := h.seed(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to seed demo data", err)
		return
	}
	if h.Log != nil {
		h.Log.Info("demo data loaded")
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "seeded"})
}

func (h *Handler) seed(ctx context.Context) error {
	svc := h.Service

	scaffolding, err := svc.CreateStock(ctx, rental.StockInput{
		Name:      "Scaffolding Frame",
		Category:  "Support",
		Quantity:  120,
		UnitPrice: billing.MustDecimal("150"),
	})
	if err != nil {
		return err
	}
	props, err := svc.CreateStock(ctx, rental.StockInput{
		Name:      "Steel Prop",
		Category:  "Support",
		Quantity:  80,
		UnitPrice: billing.MustDecimal("60"),
	})
	if err != nil {
		return err
	}
	plates, err := svc.CreateStock(ctx, rental.StockInput{
		Name:      "Base Plate",
		Category:  "Accessory",
		Quantity:  8, // below the default low-stock threshold on purpose
		UnitPrice: billing.MustDecimal("25"),
	})
	if err != nil {
		return err
	}

	ram, err := svc.CreateCustomer(ctx, rental.CustomerInput{
		Name:      "Ram Constructions",
		VehicleNo: "KA-01-4455",
		Phone:     "9000010001",
		Address:   "14 Mill Road",
	})
	if err != nil {
		return err
	}
	blue, err := svc.CreateCustomer(ctx, rental.CustomerInput{
		Name:      "Bluestone Builders",
		VehicleNo: "KA-05-7812",
		Phone:     "9000010002",
		Address:   "3 Quarry Lane",
	})
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	// Ram: one open order with an advance that part-covers the items.
	order1, err := svc.CreateOrder(ctx, ram.ID, today.AddDate(0, 0, -20), billing.MustDecimal("5000"))
	if err != nil {
		return err
	}
	if _, err := svc.AddOrderItem(ctx, order1.ID, scaffolding.ID, 20, ""); err != nil {
		return err
	}
	if _, err := svc.AddOrderItem(ctx, order1.ID, props.ID, 30, ""); err != nil {
		return err
	}

	// Bluestone: a small order already returned, plus a fresh one.
	order2, err := svc.CreateOrder(ctx, blue.ID, today.AddDate(0, 0, -45), billing.MustDecimal("1000"))
	if err != nil {
		return err
	}
	if _, err := svc.AddOrderItem(ctx, order2.ID, plates.ID, 5, ""); err != nil {
		return err
	}
	if _, err := svc.ReturnOrder(ctx, order2.ID, today.AddDate(0, 0, -30)); err != nil {
		return err
	}
	order3, err := svc.CreateOrder(ctx, blue.ID, today.AddDate(0, 0, -5), billing.MustDecimal("2000"))
	if err != nil {
		return err
	}
	if _, err := svc.AddOrderItem(ctx, order3.ID, scaffolding.ID, 10, ""); err != nil {
		return err
	}

	if _, err := svc.AddShipment(ctx, rental.ShipmentInput{
		Type:     billing.ShipmentImport,
		StockID:  props.ID,
		Quantity: 40,
		Supplier: "Apex Steel",
		Status:   billing.StatusDelivered,
	}); err != nil {
		return err
	}
	if _, err := svc.AddShipment(ctx, rental.ShipmentInput{
		Type:     billing.ShipmentExport,
		StockID:  scaffolding.ID,
		Quantity: 15,
		Supplier: "Harbor Depot",
		Status:   billing.StatusPending,
	}); err != nil {
		return err
	}

	if h.Log != nil {
		h.Log.Debug("seed complete",
			zap.String("customer_1", string(ram.ID)),
			zap.String("customer_2", string(blue.ID)),
		)
	}
	return nil
}
