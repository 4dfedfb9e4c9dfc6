package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrDuplicateSession = errors.New("order already exists for payment session")
	ErrVersionConflict  = errors.New("order was modified concurrently")
)

const (
	uniqueViolation       = "23505"
	sessionUniqueKey      = "orders_payment_session_id_key"
	orderNumberUniqueKey  = "orders_order_number_key"
	maxOrderNumberRetries = 3
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*Order, error)
	List(ctx context.Context, f Filter) (Page, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) (*Order, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const orderColumns = `o.id, o.order_number, o.user_id, u.email, u.name,
       o.subtotal_minor, o.shipping_minor, o.tax_minor, o.total_minor, o.currency,
       o.status, o.payment_id, o.payment_session_id, o.tracking_number, o.shipping_address,
       o.version, o.created_at, o.updated_at`

const orderFrom = `FROM orders o LEFT JOIN users u ON u.id = o.user_id`

const insertOrderSQL = `INSERT INTO orders (id, order_number, user_id, subtotal_minor, shipping_minor, tax_minor, total_minor,
       currency, status, payment_id, payment_session_id, tracking_number, shipping_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING version, created_at, updated_at`

const insertItemSQL = `INSERT INTO order_items (id, order_id, product_id, name, price_minor, quantity, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create inserts the order and its items in one transaction. A second order for
// the same payment session fails with ErrDuplicateSession. An order number
// collision is retried with a fresh number.
func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber(time.Now())
	}
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
	}

	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err := r.create(ctx, o, addr)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err, orderNumberUniqueKey) && attempt < maxOrderNumberRetries {
			o.OrderNumber = NewOrderNumber(time.Now())
			continue
		}
		return err
	}
}

func (r *PostgresRepository) create(ctx context.Context, o *Order, addr []byte) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID,
		ToMinor(o.Subtotal), ToMinor(o.Shipping), ToMinor(o.Tax), ToMinor(o.Total),
		o.Currency, string(o.Status), o.PaymentID, o.PaymentSessionID, o.TrackingNumber, addr,
	).Scan(&o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, sessionUniqueKey) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, insertItemSQL,
			it.ID, o.ID, it.ProductID, it.Name, ToMinor(it.Price), it.Quantity, it.Image,
		); err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.id = $1`, orderID)
}

func (r *PostgresRepository) FindBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.payment_session_id = $1`, sessionID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	orders := []Order{*o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns one page of orders, newest first, with the total match count.
func (r *PostgresRepository) List(ctx context.Context, f Filter) (Page, error) {
	f = f.Normalize()

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(o.order_number ILIKE $%d OR u.email ILIKE $%d OR u.name ILIKE $%d)", n, n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	page := Page{Page: f.Page, Limit: f.Limit}
	if err := r.pool.QueryRow(ctx, `SELECT count(*) `+orderFrom+clause, args...).Scan(&page.Total); err != nil {
		return Page{}, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, orderFrom, clause, len(args)-1, len(args))

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	page.Orders = orders
	return page, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []Order{}, nil
	}
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` `+orderFrom+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`,
		userID)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	rows.Close()

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills Items for every order with a single query.
func (r *PostgresRepository) loadItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []Item{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, name, price_minor, quantity, image
         FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, name, id`,
		ids)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it      Item
			orderID string
			minor   int64
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.Name, &minor, &it.Quantity, &it.Image); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		it.Price = FromMinor(minor)
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

// UpdateStatus writes the new status only if the stored version still equals
// ExpectedVersion. A nil TrackingNumber keeps the stored one.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, u StatusUpdate) (*Order, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
         SET status = $2, tracking_number = COALESCE($3, tracking_number), version = version + 1, updated_at = now()
         WHERE id = $1 AND version = $4`,
		u.OrderID, string(u.Status), u.TrackingNumber, u.ExpectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, u.OrderID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrVersionConflict
	}
	return r.GetByID(ctx, u.OrderID)
}

// Stats aggregates status counts and revenue windows relative to now.
func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (Stats, error) {
	st := Stats{ByStatus: make(map[Status]int64, len(allStatuses))}
	for _, s := range allStatuses {
		st.ByStatus[s] = 0
	}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by status: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan status count: %w", err)
		}
		st.ByStatus[Status(status)] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("rows: %w", err)
	}

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	revenue := make([]string, 0, 4)
	for _, s := range allStatuses {
		if s.Revenue() {
			revenue = append(revenue, string(s))
		}
	}

	var todayMinor, weekMinor, monthMinor, allMinor int64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_minor) FILTER (WHERE created_at >= $2), 0), COUNT(*) FILTER (WHERE created_at >= $2),
                COALESCE(SUM(total_minor) FILTER (WHERE created_at >= $3), 0), COUNT(*) FILTER (WHERE created_at >= $3),
                COALESCE(SUM(total_minor) FILTER (WHERE created_at >= $4), 0), COUNT(*) FILTER (WHERE created_at >= $4),
                COALESCE(SUM(total_minor), 0), COUNT(*)
         FROM orders WHERE status = ANY($1)`,
		revenue, dayStart, weekStart, monthStart,
	).Scan(
		&todayMinor, &st.Today.Orders,
		&weekMinor, &st.LastWeek.Orders,
		&monthMinor, &st.ThisMonth.Orders,
		&allMinor, &st.AllTime.Orders,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("revenue stats: %w", err)
	}
	st.Today.Revenue = FromMinor(todayMinor)
	st.LastWeek.Revenue = FromMinor(weekMinor)
	st.ThisMonth.Revenue = FromMinor(monthMinor)
	st.AllTime.Revenue = FromMinor(allMinor)
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o                              Order
		email, name                    *string
		subtotal, shipping, tax, total int64
		status                         string
		addr                           []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &email, &name,
		&subtotal, &shipping, &tax, &total, &o.Currency,
		&status, &o.PaymentID, &o.PaymentSessionID, &o.TrackingNumber, &addr,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Subtotal = FromMinor(subtotal)
	o.Shipping = FromMinor(shipping)
	o.Tax = FromMinor(tax)
	o.Total = FromMinor(total)
	o.Status = Status(status)
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	if o.UserID != nil {
		o.User = &UserRef{ID: *o.UserID, Email: deref(email), Name: deref(name)}
	}
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
