package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/postgres"
)

var ErrEmptyCart = fmt.Errorf("cannot create order from empty cart: %w", apperr.ErrInvalidState)

type Repo struct {
	DB postgres.DB
}

// CreateFromCart converts the user's cart into ord inside one transaction:
// the cart's product rows are locked, stock is verified and decremented,
// the order and its item snapshots are inserted, and the cart is emptied.
// Any shortage aborts the whole transaction; no partial decrement survives.
// Products are locked in product-id order so two overlapping orders cannot
// deadlock on each other.
//
// On success ord.Items, ord.Subtotal and ord.Total are filled in.
func (r *Repo) CreateFromCart(ctx context.Context, ord *Order) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cartID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, ord.UserID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEmptyCart
		}
		return fmt.Errorf("select cart: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT ci.product_id, ci.quantity, p.name, p.price, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id
		FOR UPDATE OF p`, cartID)
	if err != nil {
		return fmt.Errorf("lock cart lines: %w", err)
	}

	type lockedLine struct {
		productID uuid.UUID
		quantity  int
		name      string
		price     decimal.Decimal
		stock     int
	}
	var lines []lockedLine
	for rows.Next() {
		var l lockedLine
		if err := rows.Scan(&l.productID, &l.quantity, &l.name, &l.price, &l.stock); err != nil {
			rows.Close()
			return fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cart lines: %w", err)
	}
	if len(lines) == 0 {
		return ErrEmptyCart
	}

	subtotal := decimal.Zero
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		if l.stock < l.quantity {
			return apperr.InvalidState("insufficient stock for %s: requested %d, available %d",
				l.name, l.quantity, l.stock)
		}
		lineTotal := l.price.Mul(decimal.NewFromInt(int64(l.quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, Item{
			ID:          uuid.New(),
			ProductID:   l.productID,
			ProductName: l.name,
			UnitPrice:   l.price,
			Quantity:    l.quantity,
			TotalPrice:  lineTotal,
		})
	}

	ord.Items = items
	ord.Subtotal = subtotal
	ord.Total = subtotal.Add(ord.DeliveryFee)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id,
			customer_first_name, customer_last_name, customer_email, customer_phone,
			delivery_address, delivery_city, delivery_county, delivery_postal_code, delivery_notes,
			subtotal, delivery_fee, total, status, payment_reference, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		ord.ID, ord.UserID,
		ord.Customer.FirstName, ord.Customer.LastName, ord.Customer.Email, ord.Customer.Phone,
		ord.Delivery.Address, ord.Delivery.City, ord.Delivery.County, ord.Delivery.PostalCode, ord.Delivery.Notes,
		ord.Subtotal, ord.DeliveryFee, ord.Total, ord.Status, ord.PaymentReference, ord.OrderDate)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range ord.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, ord.ID, it.ProductID, it.ProductName, it.UnitPrice, it.Quantity, it.TotalPrice)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`,
			it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const orderCols = `id, user_id,
	customer_first_name, customer_last_name, customer_email, customer_phone,
	delivery_address, delivery_city, delivery_county, delivery_postal_code, delivery_notes,
	subtotal, delivery_fee, total, status, payment_reference, order_date`

func (r *Repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID)
	ord, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	if ord.Items, err = r.itemsFor(ctx, ord.ID); err != nil {
		return nil, err
	}
	return ord, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders
		WHERE user_id=$1 ORDER BY order_date DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (r *Repo) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders
		ORDER BY order_date DESC, id LIMIT $1 OFFSET $2`, limit, offset)
}

// UpdateStatus sets the order status unconditionally; validity of the
// status value itself is the caller's concern (ParseStatus).
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("order", orderID)
	}
	return nil
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.itemsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, product_name, unit_price, quantity, total_price
		FROM order_items WHERE order_id=$1 ORDER BY product_name`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID,
		&o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Email, &o.Customer.Phone,
		&o.Delivery.Address, &o.Delivery.City, &o.Delivery.County, &o.Delivery.PostalCode, &o.Delivery.Notes,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status, &o.PaymentReference, &o.OrderDate)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
