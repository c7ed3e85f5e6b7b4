package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/postgres"
)

type Repo struct {
	DB postgres.DB
}

// GetOrCreate returns the id of the user's cart, inserting an empty one on
// first access. The unique user_id constraint makes concurrent first calls
// converge on a single row.
func (r *Repo) GetOrCreate(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.DB.QueryRow(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id`, uuid.New(), userID).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get or create cart: %w", err)
	}
	return id, nil
}

// Lines reads the cart joined against the live catalog. Prices float with
// the products table until order creation freezes them.
func (r *Repo) Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY p.name`, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertLine adds quantity to an existing line or inserts a new one. The
// increment happens in the database so concurrent adds never lose updates.
func (r *Repo) UpsertLine(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		uuid.New(), cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

func (r *Repo) SetLineQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET quantity = $3
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item", productID)
	}
	return nil
}

func (r *Repo) RemoveLine(ctx context.Context, cartID, productID uuid.UUID) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item", productID)
	}
	return nil
}

// Clear removes every line. Idempotent.
func (r *Repo) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
