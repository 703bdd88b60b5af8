package order_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nimex/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *orderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByIDTx(ctx context.Context, querier domain.Querier, orderID string) (*domain.Order, error) {
	query := `
		SELECT id, buyer_id, vendor_id, total_amount, status,
		       COALESCE(payment_status, ''), COALESCE(payment_reference, ''), COALESCE(payment_method, ''),
		       payment_date, COALESCE(escrow_id, ''), COALESCE(escrow_status, ''), updated_at
		FROM orders
		WHERE id = $1
	`
	order := &domain.Order{}
	var paymentDate sql.NullTime
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.BuyerID,
		&order.VendorID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentReference,
		&order.PaymentMethod,
		&paymentDate,
		&order.EscrowID,
		&order.EscrowStatus,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	if paymentDate.Valid {
		order.PaymentDate = &paymentDate.Time
	}
	return order, nil
}

func (r *orderRepository) MarkPaidTx(ctx context.Context, querier domain.Querier, orderID, paymentReference, paymentMethod string, paymentDate time.Time) error {
	query := `
		UPDATE orders
		SET payment_status = $1, payment_reference = $2, payment_method = $3, payment_date = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := querier.ExecContext(ctx, query,
		domain.PaymentStatusPaid, paymentReference, paymentMethod, paymentDate, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) SetEscrowTx(ctx context.Context, querier domain.Querier, orderID, escrowID string, escrowStatus domain.EscrowStatus) error {
	query := `
		UPDATE orders
		SET escrow_id = $1, escrow_status = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := querier.ExecContext(ctx, query, escrowID, escrowStatus, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to set escrow on order %s: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) MarkEscrowReleasedTx(ctx context.Context, querier domain.Querier, orderID string, at time.Time) error {
	query := `
		UPDATE orders
		SET escrow_status = $1, status = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := querier.ExecContext(ctx, query,
		domain.EscrowStatusReleased, domain.OrderStatusDelivered, at, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order %s escrow released: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) MarkRefundedTx(ctx context.Context, querier domain.Querier, orderID string, at time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, escrow_status = $3, updated_at = $4
		WHERE id = $5
	`
	res, err := querier.ExecContext(ctx, query,
		domain.OrderStatusCancelled, domain.PaymentStatusRefunded, domain.EscrowStatusRefunded, at, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order %s refunded: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
