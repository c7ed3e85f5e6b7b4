package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/postgres"
)

type Repo struct {
	DB postgres.DB
}

const productCols = `id, farmer_id, name, description, category, unit, price, stock, status, created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+productCols+`
		FROM products
		WHERE status='APPROVED'
		ORDER BY name
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products (id, farmer_id, name, description, category, unit, price, stock, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.FarmerID, p.Name, p.Description, p.Category, p.Unit, p.Price, p.Stock, p.Status)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateStatus flips the approval status. Admin approval workflow only;
// stock is never touched here.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE products SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("update product status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.FarmerID, &p.Name, &p.Description, &p.Category, &p.Unit,
		&p.Price, &p.Stock, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
