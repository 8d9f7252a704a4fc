/*
Package sqlite provides a SQLite-backed rental.Store.

PURPOSE:
  The default storage backend. The same SQL shapes apply to the Postgres
  backend in store/postgres - only placeholder syntax and sequence columns
  differ.

KEY TABLES:
  customers:    master records with the advance balance and its flag
  stocks:       on-hand counters and unit prices
  orders:       one row per order; rowid carries creation order
  order_items:  one row per line; rowid carries creation order
  shipments:    stock movements

MONEY:
  Monetary columns are TEXT holding decimal strings, never REAL - parsing
  through shopspring/decimal keeps arithmetic exact.

ORDERING:
  The allocation sweep needs per-order then per-item creation order.
  Upserts use ON CONFLICT DO UPDATE (not INSERT OR REPLACE) precisely so
  rowid - and with it creation order - survives edits.

TRANSACTIONS:
  WithTx wraps fn in one SQL transaction; every mutating service
  operation routes its grouped writes through it, so a failed step leaves
  no partial state.

WAL MODE:
  The database is opened with WAL and foreign keys on, as usual for this
  driver: readers don't block, single writer at a time.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every read/write against a dbtx. Store and the
// transaction view both embed it.
type queries struct {
	q dbtx
}

// Store is the SQLite-backed rental.Store.
type Store struct {
	queries
	db *sql.DB
	mu sync.Mutex // serializes WithTx; SQLite allows one writer at a time
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
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
		name TEXT NOT NULL,
		vehicle_no TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Processing',
		advance TEXT NOT NULL DEFAULT '0',
		advance_closed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stocks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		order_date TEXT NOT NULL,
		return_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer
		ON orders(customer_id);

	CREATE TABLE IF NOT EXISTS order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		stock_id TEXT NOT NULL REFERENCES stocks(id),
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		pending_amount TEXT NOT NULL,
		bonus_amount TEXT NOT NULL,
		fine_amount TEXT NOT NULL DEFAULT '0',
		used_days INTEGER NOT NULL DEFAULT 0,
		return_date TEXT,
		status TEXT NOT NULL DEFAULT 'Pending'
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order
		ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_order_items_stock
		ON order_items(stock_id);

	CREATE TABLE IF NOT EXISTS shipments (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		stock_id TEXT NOT NULL REFERENCES stocks(id),
		quantity INTEGER NOT NULL,
		supplier TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending',
		shipment_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shipments_stock
		ON shipments(stock_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn inside one SQL transaction.
func (s *Store) WithTx(ctx context.Context, fn func(rental.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

// txStore is the Store view bound to an open transaction.
type txStore struct {
	queries
}

// WithTx nested inside a transaction joins it.
func (t *txStore) WithTx(ctx context.Context, fn func(rental.Store) error) error {
	return fn(t)
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func parseMoney(s string) decimal.Decimal {
	return billing.MustDecimal(s)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeString(*t)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerCols = "id, name, vehicle_no, phone, address, status, advance, advance_closed, created_at"

func scanCustomer(row interface{ Scan(...any) error }) (*billing.Customer, error) {
	var c billing.Customer
	var advance, createdAt string
	var closed int
	err := row.Scan(&c.ID, &c.Name, &c.VehicleNo, &c.Phone, &c.Address, &c.Status, &advance, &closed, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Advance = parseMoney(advance)
	c.AdvanceClosed = closed != 0
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *queries) GetCustomer(ctx context.Context, id billing.CustomerID) (*billing.Customer, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+customerCols+" FROM customers WHERE id = ?", string(id))
	return scanCustomer(row)
}

func (s *queries) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+customerCols+" FROM customers ORDER BY rowid")
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
	closed := 0
	if c.AdvanceClosed {
		closed = 1
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, vehicle_no, phone, address, status, advance, advance_closed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			vehicle_no = excluded.vehicle_no,
			phone = excluded.phone,
			address = excluded.address,
			status = excluded.status,
			advance = excluded.advance,
			advance_closed = excluded.advance_closed`,
		string(c.ID), c.Name, c.VehicleNo, c.Phone, c.Address, c.Status,
		c.Advance.String(), closed, timeString(c.CreatedAt))
	return err
}

func (s *queries) DeleteCustomer(ctx context.Context, id billing.CustomerID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", string(id))
	return err
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
	st.UnitPrice = parseMoney(unitPrice)
	return &st, nil
}

func (s *queries) GetStock(ctx context.Context, id billing.StockID) (*billing.Stock, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+stockCols+" FROM stocks WHERE id = ?", string(id))
	return scanStock(row)
}

func (s *queries) ListStock(ctx context.Context) ([]billing.Stock, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+stockCols+" FROM stocks ORDER BY rowid")
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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			quantity = excluded.quantity,
			unit_price = excluded.unit_price`,
		string(st.ID), st.Name, st.Category, st.Quantity, st.UnitPrice.String())
	return err
}

func (s *queries) DeleteStock(ctx context.Context, id billing.StockID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM stocks WHERE id = ?", string(id))
	return err
}

// =============================================================================
// ORDERS
// =============================================================================

const orderCols = "id, customer_id, order_date, return_date, created_at"

func scanOrder(row interface{ Scan(...any) error }) (*billing.Order, error) {
	var o billing.Order
	var orderDate, createdAt string
	var returnDate sql.NullString
	err := row.Scan(&o.ID, &o.CustomerID, &orderDate, &returnDate, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	o.OrderDate = parseTime(orderDate)
	o.CreatedAt = parseTime(createdAt)
	if returnDate.Valid {
		rd := parseTime(returnDate.String)
		o.ReturnDate = &rd
	}
	return &o, nil
}

func (s *queries) GetOrder(ctx context.Context, id billing.OrderID) (*billing.Order, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE id = ?", string(id))
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
		"SELECT "+orderCols+" FROM orders WHERE customer_id = ? ORDER BY rowid", string(id))
}

func (s *queries) ListOrders(ctx context.Context) ([]billing.Order, error) {
	return s.listOrders(ctx, "SELECT "+orderCols+" FROM orders ORDER BY rowid")
}

func (s *queries) SaveOrder(ctx context.Context, o billing.Order) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, order_date, return_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			order_date = excluded.order_date,
			return_date = excluded.return_date`,
		string(o.ID), string(o.CustomerID), timeString(o.OrderDate),
		nullTime(o.ReturnDate), timeString(o.CreatedAt))
	return err
}

func (s *queries) DeleteOrder(ctx context.Context, id billing.OrderID) error {
	// Cascade explicitly; foreign_keys pragma handles it too, but the
	// cascade is part of the store contract, not a schema nicety.
	if _, err := s.q.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", string(id)); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", string(id))
	return err
}

// =============================================================================
// ORDER ITEMS
// =============================================================================

const itemCols = "id, order_id, stock_id, quantity, unit_price, total_price, pending_amount, bonus_amount, fine_amount, used_days, return_date, status"

func scanItem(row interface{ Scan(...any) error }) (*billing.OrderItem, error) {
	var it billing.OrderItem
	var unitPrice, totalPrice, pending, bonus, fine string
	var returnDate sql.NullString
	err := row.Scan(&it.ID, &it.OrderID, &it.StockID, &it.Quantity,
		&unitPrice, &totalPrice, &pending, &bonus, &fine,
		&it.UsedDays, &returnDate, &it.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	it.UnitPrice = parseMoney(unitPrice)
	it.TotalPrice = parseMoney(totalPrice)
	it.PendingAmount = parseMoney(pending)
	it.BonusAmount = parseMoney(bonus)
	it.FineAmount = parseMoney(fine)
	if returnDate.Valid {
		rd := parseTime(returnDate.String)
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
		"SELECT "+itemCols+" FROM order_items WHERE order_id = ? ORDER BY rowid", string(id))
}

// ListItemsByCustomer orders by order creation then item creation - the
// flattening the allocation sweep requires.
func (s *queries) ListItemsByCustomer(ctx context.Context, id billing.CustomerID) ([]billing.OrderItem, error) {
	return s.listItems(ctx, `
		SELECT i.id, i.order_id, i.stock_id, i.quantity, i.unit_price, i.total_price,
		       i.pending_amount, i.bonus_amount, i.fine_amount, i.used_days, i.return_date, i.status
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.customer_id = ?
		ORDER BY o.rowid, i.rowid`, string(id))
}

func (s *queries) ListItemsByStock(ctx context.Context, id billing.StockID) ([]billing.OrderItem, error) {
	return s.listItems(ctx,
		"SELECT "+itemCols+" FROM order_items WHERE stock_id = ? ORDER BY rowid", string(id))
}

func (s *queries) SaveOrderItem(ctx context.Context, it billing.OrderItem) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, stock_id, quantity, unit_price, total_price,
			pending_amount, bonus_amount, fine_amount, used_days, return_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
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
		it.UsedDays, nullTime(it.ReturnDate), it.Status)
	return err
}

// =============================================================================
// SHIPMENTS
// =============================================================================

const shipmentCols = "id, type, stock_id, quantity, supplier, status, shipment_date"

func scanShipment(row interface{ Scan(...any) error }) (*billing.Shipment, error) {
	var sh billing.Shipment
	var shipmentDate string
	err := row.Scan(&sh.ID, &sh.Type, &sh.StockID, &sh.Quantity, &sh.Supplier, &sh.Status, &shipmentDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	sh.ShipmentDate = parseTime(shipmentDate)
	return &sh, nil
}

func (s *queries) GetShipment(ctx context.Context, id billing.ShipmentID) (*billing.Shipment, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+shipmentCols+" FROM shipments WHERE id = ?", string(id))
	return scanShipment(row)
}

func (s *queries) ListShipments(ctx context.Context) ([]billing.Shipment, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+shipmentCols+" FROM shipments ORDER BY rowid")
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
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			stock_id = excluded.stock_id,
			quantity = excluded.quantity,
			supplier = excluded.supplier,
			status = excluded.status`,
		string(sh.ID), string(sh.Type), string(sh.StockID), sh.Quantity,
		sh.Supplier, sh.Status, timeString(sh.ShipmentDate))
	return err
}

func (s *queries) DeleteShipment(ctx context.Context, id billing.ShipmentID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM shipments WHERE id = ?", string(id))
	return err
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
			(SELECT COUNT(*) FROM stocks WHERE quantity < ?)`,
		lowStockBelow)
	if err := row.Scan(&c.Stocks, &c.Customers, &c.Orders, &c.Shipments, &c.LowStock); err != nil {
		return rental.Counts{}, err
	}
	return c, nil
}
