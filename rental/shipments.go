/*
shipments.go - Stock movements

PURPOSE:
  Import and export shipments against stock counters. Imports increment,
  exports decrement; no movement may leave a counter negative. Editing a
  shipment reverses its original effect, validates the new one, and
  applies it - all inside one store transaction so no intermediate invalid
  stock level is ever observable.
*/
package rental

import (
	"context"
	"time"

	"github.com/warp/rental-engine/billing"
)

// ShipmentInput carries the mutable fields of a shipment.
type ShipmentInput struct {
	Type     billing.ShipmentType
	StockID  billing.StockID
	Quantity int
	Supplier string
	Status   string
}

func (in ShipmentInput) validate() error {
	if !in.Type.Valid() {
		return &billing.ValidationError{Field: "type", Message: "must be Import or Export"}
	}
	if in.Quantity < 1 {
		return &billing.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	return nil
}

// applyMovement applies a shipment's effect to a stock counter.
func applyMovement(stock *billing.Stock, typ billing.ShipmentType, quantity int) error {
	switch typ {
	case billing.ShipmentImport:
		stock.Quantity += quantity
	case billing.ShipmentExport:
		if stock.Quantity < quantity {
			return &billing.InsufficientStockError{StockID: stock.ID, Available: stock.Quantity, Requested: quantity}
		}
		stock.Quantity -= quantity
	}
	return nil
}

// reverseMovement undoes a shipment's effect. Reversing an import can also
// hit the floor: the units may already have left via orders or exports.
func reverseMovement(stock *billing.Stock, typ billing.ShipmentType, quantity int) error {
	switch typ {
	case billing.ShipmentImport:
		if stock.Quantity < quantity {
			return &billing.InsufficientStockError{StockID: stock.ID, Available: stock.Quantity, Requested: quantity}
		}
		stock.Quantity -= quantity
	case billing.ShipmentExport:
		stock.Quantity += quantity
	}
	return nil
}

// AddShipment records a stock movement and applies it to the counter.
func (s *Service) AddShipment(ctx context.Context, in ShipmentInput) (billing.Shipment, error) {
	if err := in.validate(); err != nil {
		return billing.Shipment{}, err
	}
	if in.Status == "" {
		in.Status = billing.StatusPending
	}

	unlock := s.locks.Lock(stockKey(string(in.StockID)))
	defer unlock()

	var shipment billing.Shipment
	err := s.store.WithTx(ctx, func(st Store) error {
		stock, err := st.GetStock(ctx, in.StockID)
		if err != nil {
			return err
		}
		if stock == nil {
			return &billing.NotFoundError{Kind: "stock", ID: string(in.StockID)}
		}

		if err := applyMovement(stock, in.Type, in.Quantity); err != nil {
			return err
		}
		if err := billing.CheckStock(*stock); err != nil {
			return err
		}
		if err := st.SaveStock(ctx, *stock); err != nil {
			return err
		}

		shipment = billing.Shipment{
			ID:           billing.ShipmentID(newID()),
			Type:         in.Type,
			StockID:      in.StockID,
			Quantity:     in.Quantity,
			Supplier:     in.Supplier,
			Status:       in.Status,
			ShipmentDate: time.Now().UTC(),
		}
		return st.SaveShipment(ctx, shipment)
	})
	return shipment, err
}

// EditShipment replaces a shipment's type/stock/quantity, reversing the
// original stock effect before applying the new one. Reverse and apply run
// in a single transaction; a failed validation rolls both back.
func (s *Service) EditShipment(ctx context.Context, id billing.ShipmentID, in ShipmentInput) (billing.Shipment, error) {
	if err := in.validate(); err != nil {
		return billing.Shipment{}, err
	}

	existing, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return billing.Shipment{}, err
	}
	if existing == nil {
		return billing.Shipment{}, &billing.NotFoundError{Kind: "shipment", ID: string(id)}
	}

	unlock := s.locks.LockAll(stockKey(string(existing.StockID)), stockKey(string(in.StockID)))
	defer unlock()

	var updated billing.Shipment
	err = s.store.WithTx(ctx, func(st Store) error {
		shipment, err := st.GetShipment(ctx, id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return &billing.NotFoundError{Kind: "shipment", ID: string(id)}
		}

		original, err := st.GetStock(ctx, shipment.StockID)
		if err != nil {
			return err
		}
		if original == nil {
			return &billing.NotFoundError{Kind: "stock", ID: string(shipment.StockID)}
		}

		if err := reverseMovement(original, shipment.Type, shipment.Quantity); err != nil {
			return err
		}

		// Same stock: apply the new movement to the already-reversed counter.
		// Different stock: persist the reversal, then load the new target.
		target := original
		if in.StockID != shipment.StockID {
			if err := st.SaveStock(ctx, *original); err != nil {
				return err
			}
			target, err = st.GetStock(ctx, in.StockID)
			if err != nil {
				return err
			}
			if target == nil {
				return &billing.NotFoundError{Kind: "stock", ID: string(in.StockID)}
			}
		}

		if err := applyMovement(target, in.Type, in.Quantity); err != nil {
			return err
		}
		if err := billing.CheckStock(*target); err != nil {
			return err
		}
		if err := st.SaveStock(ctx, *target); err != nil {
			return err
		}

		shipment.Type = in.Type
		shipment.StockID = in.StockID
		shipment.Quantity = in.Quantity
		shipment.Supplier = in.Supplier
		shipment.Status = in.Status
		updated = *shipment
		return st.SaveShipment(ctx, *shipment)
	})
	return updated, err
}

// DeleteShipment removes a shipment, reversing its stock effect first.
func (s *Service) DeleteShipment(ctx context.Context, id billing.ShipmentID) error {
	existing, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &billing.NotFoundError{Kind: "shipment", ID: string(id)}
	}

	unlock := s.locks.Lock(stockKey(string(existing.StockID)))
	defer unlock()

	return s.store.WithTx(ctx, func(st Store) error {
		shipment, err := st.GetShipment(ctx, id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return &billing.NotFoundError{Kind: "shipment", ID: string(id)}
		}

		stock, err := st.GetStock(ctx, shipment.StockID)
		if err != nil {
			return err
		}
		if stock != nil {
			if err := reverseMovement(stock, shipment.Type, shipment.Quantity); err != nil {
				return err
			}
			if err := st.SaveStock(ctx, *stock); err != nil {
				return err
			}
		}
		return st.DeleteShipment(ctx, id)
	})
}

// GetShipment returns one shipment.
func (s *Service) GetShipment(ctx context.Context, id billing.ShipmentID) (billing.Shipment, error) {
	shipment, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return billing.Shipment{}, err
	}
	if shipment == nil {
		return billing.Shipment{}, &billing.NotFoundError{Kind: "shipment", ID: string(id)}
	}
	return *shipment, nil
}

// ListShipments returns all shipments.
func (s *Service) ListShipments(ctx context.Context) ([]billing.Shipment, error) {
	return s.store.ListShipments(ctx)
}
