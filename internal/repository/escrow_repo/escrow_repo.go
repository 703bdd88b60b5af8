package escrow_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nimex/internal/domain"
)

type escrowRepository struct {
	db *sql.DB
}

func NewEscrowRepository(db *sql.DB) *escrowRepository {
	return &escrowRepository{db: db}
}

func (r *escrowRepository) CreateTx(ctx context.Context, querier domain.Querier, escrow *domain.EscrowTransaction) error {
	query := `
		INSERT INTO escrow_transactions (id, order_id, buyer_id, vendor_id, total_amount, platform_fee, vendor_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := querier.ExecContext(ctx, query,
		escrow.ID,
		escrow.OrderID,
		escrow.BuyerID,
		escrow.VendorID,
		escrow.TotalAmount,
		escrow.PlatformFee,
		escrow.VendorAmount,
		escrow.Status,
		escrow.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create escrow transaction for order %s: %w", escrow.OrderID, err)
	}
	return nil
}

func (r *escrowRepository) GetByOrderIDTx(ctx context.Context, querier domain.Querier, orderID string) (*domain.EscrowTransaction, error) {
	query := `
		SELECT id, order_id, buyer_id, vendor_id, total_amount, platform_fee, vendor_amount, status,
		       COALESCE(release_reason, ''), COALESCE(release_type, ''), COALESCE(refunded_by, ''),
		       created_at, released_at
		FROM escrow_transactions
		WHERE order_id = $1
		FOR UPDATE
	`
	escrow := &domain.EscrowTransaction{}
	var releasedAt sql.NullTime
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&escrow.ID,
		&escrow.OrderID,
		&escrow.BuyerID,
		&escrow.VendorID,
		&escrow.TotalAmount,
		&escrow.PlatformFee,
		&escrow.VendorAmount,
		&escrow.Status,
		&escrow.ReleaseReason,
		&escrow.ReleaseType,
		&escrow.RefundedBy,
		&escrow.CreatedAt,
		&releasedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("failed to get escrow transaction for order %s: %w", orderID, err)
	}
	if releasedAt.Valid {
		escrow.ReleasedAt = &releasedAt.Time
	}
	return escrow, nil
}

func (r *escrowRepository) MarkReleasedTx(ctx context.Context, querier domain.Querier, id, releaseReason, releaseType string, releasedAt time.Time) error {
	// The status guard makes the terminal transition a compare-and-set: a
	// concurrent release that got there first leaves zero rows to update.
	query := `
		UPDATE escrow_transactions
		SET status = $1, release_reason = $2, release_type = $3, released_at = $4
		WHERE id = $5 AND status = $6
	`
	res, err := querier.ExecContext(ctx, query,
		domain.EscrowStatusReleased, releaseReason, releaseType, releasedAt, id, domain.EscrowStatusHeld)
	if err != nil {
		return fmt.Errorf("failed to mark escrow %s released: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.EscrowStateError{Status: domain.EscrowStatusReleased, Action: "release"}
	}
	return nil
}

func (r *escrowRepository) MarkRefundedTx(ctx context.Context, querier domain.Querier, id, refundedBy string, refundedAt time.Time) error {
	query := `
		UPDATE escrow_transactions
		SET status = $1, refunded_by = $2, released_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := querier.ExecContext(ctx, query,
		domain.EscrowStatusRefunded, refundedBy, refundedAt, id, domain.EscrowStatusHeld)
	if err != nil {
		return fmt.Errorf("failed to mark escrow %s refunded: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.EscrowStateError{Status: domain.EscrowStatusRefunded, Action: "refund"}
	}
	return nil
}
