package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/postgres"
)

type Repo struct {
	DB postgres.DB
}

const payCols = `id, order_id, user_id, amount, method, status, transaction_id,
	merchant_request_id, checkout_request_id, receipt_number, payment_date`

// Create inserts the payment and, when it is already settled successfully,
// confirms the order in the same transaction. A second payment for the same
// order hits the order_id unique constraint and reports a conflict.
func (r *Repo) Create(ctx context.Context, p *Payment) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, order_id, user_id, amount, method, status, transaction_id,
			merchant_request_id, checkout_request_id, receipt_number, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.OrderID, p.UserID, p.Amount, p.Method, p.Status, p.TransactionID,
		p.MerchantRequestID, p.CheckoutRequestID, p.ReceiptNumber, p.PaymentDate)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("payment already exists for order %s: %w", p.OrderID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	if p.Status == StatusSuccess {
		if err := confirmOrder(ctx, tx, p.OrderID); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repo) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	var p Payment
	err := r.DB.QueryRow(ctx, `SELECT `+payCols+` FROM payments WHERE transaction_id=$1`, transactionID).
		Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Method, &p.Status, &p.TransactionID,
			&p.MerchantRequestID, &p.CheckoutRequestID, &p.ReceiptNumber, &p.PaymentDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("payment", transactionID)
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	return &p, nil
}

// Settle moves a pending payment to its terminal status and reports whether
// this call performed the transition. Settling an already terminal payment is
// a no-op that returns the stored row, so duplicate gateway callbacks are
// harmless. Success also confirms the order.
func (r *Repo) Settle(ctx context.Context, transactionID string, success bool, receipt string) (*Payment, bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	status := StatusFailed
	if success {
		status = StatusSuccess
	}
	var p Payment
	err = tx.QueryRow(ctx, `
		UPDATE payments
		SET status=$2, receipt_number=$3, payment_date=now()
		WHERE transaction_id=$1 AND status='PENDING'
		RETURNING `+payCols,
		transactionID, status, receipt).
		Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Method, &p.Status, &p.TransactionID,
			&p.MerchantRequestID, &p.CheckoutRequestID, &p.ReceiptNumber, &p.PaymentDate)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either unknown or already settled; the read disambiguates.
		stored, err := r.GetByTransactionID(ctx, transactionID)
		return stored, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("settle payment: %w", err)
	}

	if success {
		if err := confirmOrder(ctx, tx, p.OrderID); err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return &p, true, nil
}

func confirmOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	_, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, orders.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("confirm order %s: %w", orderID, err)
	}
	return nil
}
