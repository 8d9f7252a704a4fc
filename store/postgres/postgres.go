/*
Package postgres provides a PostgreSQL-backed rental.Store.

PURPOSE:
  Production-grade alternative to the SQLite backend, selected with
  storage.driver: postgres. Uses the pgx stdlib driver so the code stays
  database/sql like the rest of the store layer.

DIFFERENCES FROM store/sqlite:
  - $N placeholders instead of ?
  - explicit BIGSERIAL seq columns instead of rowid for creation order
  - no store-level mutex: Postgres handles concurrent transactions

SCHEMA NOTES:
  Money columns are TEXT decimal strings, matching the SQLite backend, so
  both stores round-trip shopspring/decimal exactly.
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q dbtx
}

// Store is the Postgres-backed rental.Store.
type Store struct {
	queries
	db *sql.DB
}

// New connects with the given DSN and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{queries: queries{q: db}, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		name TEXT NOT NULL,
		vehicle_no TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Processing',
		advance TEXT NOT NULL DEFAULT '0',
		advance_closed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stocks (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		order_date TIMESTAMPTZ NOT NULL,
		return_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);

	CREATE TABLE IF NOT EXISTS order_items (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		stock_id TEXT NOT NULL REFERENCES stocks(id),
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		pending_amount TEXT NOT NULL,
		bonus_amount TEXT NOT NULL,
		fine_amount TEXT NOT NULL DEFAULT '0',
		used_days INTEGER NOT NULL DEFAULT 0,
		return_date TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'Pending'
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_order_items_stock ON order_items(stock_id);

	CREATE TABLE IF NOT EXISTS shipments (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		type TEXT NOT NULL,
		stock_id TEXT NOT NULL REFERENCES stocks(id),
		quantity INTEGER NOT NULL,
		supplier TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending',
		shipment_date TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shipments_stock ON shipments(stock_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// mapPGError turns constraint failures into engine error kinds so callers
// above the store see the same classification as with other backends.
func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return &billing.ValidationError{Field: "reference", Message: "referenced record does not exist"}
	}
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) WithTx(ctx context.Context, fn func(rental.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	view := &txStore{queries{q: tx}}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type txStore struct {
	queries
}

func (t *txStore) WithTx(ctx context.Context, fn func(rental.Store) error) error {
	return fn(t)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerCols = "id, name, vehicle_no, phone, address, status, advance, advance_closed, created_at"

func scanCustomer(row interface{ Scan(...any) error }) (*billing.Customer, error) {
	var c billing.Customer
	var advance string
	err := row.Scan(&c.ID, &c.Name, &c.VehicleNo, &c.Phone, &c.Address, &c.Status, &advance, &c.AdvanceClosed, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Advance = billing.MustDecimal(advance)
	return &c, nil
}

func (s *queries) GetCustomer(ctx context.Context, id billing.CustomerID) (*billing.Customer, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+customerCols+" FROM customers WHERE id = $1", string(id))
	return scanCustomer(row)
}

func (s *queries) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+customerCols+" FROM customers ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *queries) SaveCustomer(ctx context.Context, c billing.Customer) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, vehicle_no, phone, address, status, advance, advance_closed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			vehicle_no = excluded.vehicle_no,
			phone = excluded.phone,
			address = excluded.address,
			status = excluded.status,
			advance = excluded.advance,
			advance_closed = excluded.advance_closed`,
		string(c.ID), c.Name, c.VehicleNo, c.Phone, c.Address, c.Status,
		c.Advance.String(), c.AdvanceClosed, c.CreatedAt.UTC())
	return mapPGError(err)
}

func (s *queries) DeleteCustomer(ctx context.Context, id billing.CustomerID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM customers WHERE id = $1", string(id))
	return mapPGError(err)
}

// =============================================================================
// STOCK
// =============================================================================

const stockCols = "id, name, category, quantity, unit_price"

func scanStock(row interface{ Scan(...any) error }) (*billing.Stock, error) {
	var st billing.Stock
	var unitPrice string
	err := row.Scan(&st.ID, &st.Name, &st.Category, &st.Quantity, &unitPrice)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	st.UnitPrice = billing.MustDecimal(unitPrice)
	return &st, nil
}

func (s *queries) GetStock(ctx context.Context, id billing.StockID) (*billing.Stock, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+stockCols+" FROM stocks WHERE id = $1", string(id))
	return scanStock(row)
}

func (s *queries) ListStock(ctx context.Context) ([]billing.Stock, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+stockCols+" FROM stocks ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Stock
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *queries) SaveStock(ctx context.Context, st billing.Stock) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO stocks (id, name, category, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			quantity = excluded.quantity,
			unit_price = excluded.unit_price`,
		string(st.ID), st.Name, st.Category, st.Quantity, st.UnitPrice.String())
	return mapPGError(err)
}

func (s *queries) DeleteStock(ctx context.Context, id billing.StockID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM stocks WHERE id = $1", string(id))
	return mapPGError(err)
}

// =============================================================================
// ORDERS
// =============================================================================

const orderCols = "id, customer_id, order_date, return_date, created_at"

func scanOrder(row interface{ Scan(...any) error }) (*billing.Order, error) {
	var o billing.Order
	var returnDate sql.NullTime
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &returnDate, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if returnDate.Valid {
		rd := returnDate.Time
		o.ReturnDate = &rd
	}
	return &o, nil
}

func (s *queries) GetOrder(ctx context.Context, id billing.OrderID) (*billing.Order, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE id = $1", string(id))
	return scanOrder(row)
}

func (s *queries) listOrders(ctx context.Context, query string, args ...any) ([]billing.Order, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *queries) ListOrdersByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.Order, error) {
	return s.listOrders(ctx,
		"SELECT "+orderCols+" FROM orders WHERE customer_id = $1 ORDER BY seq", string(id))
}

func (s *queries) ListOrders(ctx context.Context) ([]billing.Order, error) {
	return s.listOrders(ctx, "SELECT "+orderCols+" FROM orders ORDER BY seq")
}

func (s *queries) SaveOrder(ctx context.Context, o billing.Order) error {
	var returnDate any
	if o.ReturnDate != nil {
		returnDate = o.ReturnDate.UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, order_date, return_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = excluded.customer_id,
			order_date = excluded.order_date,
			return_date = excluded.return_date`,
		string(o.ID), string(o.CustomerID), o.OrderDate.UTC(), returnDate, o.CreatedAt.UTC())
	return mapPGError(err)
}

func (s *queries) DeleteOrder(ctx context.Context, id billing.OrderID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", string(id)); err != nil {
		return mapPGError(err)
	}
	_, err := s.q.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", string(id))
	return mapPGError(err)
}

// =============================================================================
// ORDER ITEMS
// =============================================================================

const itemCols = "id, order_id, stock_id, quantity, unit_price, total_price, pending_amount, bonus_amount, fine_amount, used_days, return_date, status"

func scanItem(row interface{ Scan(...any) error }) (*billing.OrderItem, error) {
	var it billing.OrderItem
	var unitPrice, totalPrice, pending, bonus, fine string
	var returnDate sql.NullTime
	err := row.Scan(&it.ID, &it.OrderID, &it.StockID, &it.Quantity,
		&unitPrice, &totalPrice, &pending, &bonus, &fine,
		&it.UsedDays, &returnDate, &it.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	it.UnitPrice = billing.MustDecimal(unitPrice)
	it.TotalPrice = billing.MustDecimal(totalPrice)
	it.PendingAmount = billing.MustDecimal(pending)
	it.BonusAmount = billing.MustDecimal(bonus)
	it.FineAmount = billing.MustDecimal(fine)
	if returnDate.Valid {
		rd := returnDate.Time
		it.ReturnDate = &rd
	}
	return &it, nil
}

func (s *queries) listItems(ctx context.Context, query string, args ...any) ([]billing.OrderItem, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (s *queries) ListItemsByOrder(ctx context.Context, id billing.OrderID) ([]billing.OrderItem, error) {
	return s.listItems(ctx,
		"SELECT "+itemCols+" FROM order_items WHERE order_id = $1 ORDER BY seq", string(id))
}

func (s *queries) ListItemsByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.OrderItem, error) {
	return s.listItems(ctx, `
		SELECT i.id, i.order_id, i.stock_id, i.quantity, i.unit_price, i.total_price,
		       i.pending_amount, i.bonus_amount, i.fine_amount, i.used_days, i.return_date, i.status
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.customer_id = $1
		ORDER BY o.seq, i.seq`, string(id))
}

func (s *queries) ListItemsByStock(ctx context.Context, id billing.StockID) ([]billing.OrderItem, error) {
	return s.listItems(ctx,
		"SELECT "+itemCols+" FROM order_items WHERE stock_id = $1 ORDER BY seq", string(id))
}

func (s *queries) SaveOrderItem(ctx context.Context, it billing.OrderItem) error {
	var returnDate any
	if it.ReturnDate != nil {
		returnDate = it.ReturnDate.UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, stock_id, quantity, unit_price, total_price,
			pending_amount, bonus_amount, fine_amount, used_days, return_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			quantity = excluded.quantity,
			unit_price = excluded.unit_price,
			total_price = excluded.total_price,
			pending_amount = excluded.pending_amount,
			bonus_amount = excluded.bonus_amount,
			fine_amount = excluded.fine_amount,
			used_days = excluded.used_days,
			return_date = excluded.return_date,
			status = excluded.status`,
		string(it.ID), string(it.OrderID), string(it.StockID), it.Quantity,
		it.UnitPrice.String(), it.TotalPrice.String(),
		it.PendingAmount.String(), it.BonusAmount.String(), it.FineAmount.String(),
		it.UsedDays, returnDate, it.Status)
	return mapPGError(err)
}

// =============================================================================
// SHIPMENTS
// =============================================================================

const shipmentCols = "id, type, stock_id, quantity, supplier, status, shipment_date"

func scanShipment(row interface{ Scan(...any) error }) (*billing.Shipment, error) {
	var sh billing.Shipment
	err := row.Scan(&sh.ID, &sh.Type, &sh.StockID, &sh.Quantity, &sh.Supplier, &sh.Status, &sh.ShipmentDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &sh, nil
}

func (s *queries) GetShipment(ctx context.Context, id billing.ShipmentID) (*billing.Shipment, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+shipmentCols+" FROM shipments WHERE id = $1", string(id))
	return scanShipment(row)
}

func (s *queries) ListShipments(ctx context.Context) ([]billing.Shipment, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+shipmentCols+" FROM shipments ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

func (s *queries) SaveShipment(ctx context.Context, sh billing.Shipment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO shipments (id, type, stock_id, quantity, supplier, status, shipment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			stock_id = excluded.stock_id,
			quantity = excluded.quantity,
			supplier = excluded.supplier,
			status = excluded.status`,
		string(sh.ID), string(sh.Type), string(sh.StockID), sh.Quantity,
		sh.Supplier, sh.Status, sh.ShipmentDate.UTC())
	return mapPGError(err)
}

func (s *queries) DeleteShipment(ctx context.Context, id billing.ShipmentID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM shipments WHERE id = $1", string(id))
	return mapPGError(err)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (s *queries) Counts(ctx context.Context, lowStockBelow int) (rental.Counts, error) {
	var c rental.Counts
	row := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stocks),
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM shipments),
			(SELECT COUNT(*) FROM stocks WHERE quantity < $1)`,
		lowStockBelow)
	if err := row.Scan(&c.Stocks, &c.Customers, &c.Orders, &c.Shipments, &c.LowStock); err != nil {
		return rental.Counts{}, err
	}
	return c, nil
}
