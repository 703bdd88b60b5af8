package payout_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nimex/internal/domain"
)

type payoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) *payoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) GetByTransferReferenceTx(ctx context.Context, querier domain.Querier, transferReference string) (*domain.Payout, error) {
	query := `
		SELECT id, vendor_id, amount, transfer_reference, status, COALESCE(failure_reason, ''), completed_at, updated_at
		FROM payouts
		WHERE transfer_reference = $1
	`
	payout := &domain.Payout{}
	var completedAt sql.NullTime
	err := querier.QueryRowContext(ctx, query, transferReference).Scan(
		&payout.ID,
		&payout.VendorID,
		&payout.Amount,
		&payout.TransferReference,
		&payout.Status,
		&payout.FailureReason,
		&completedAt,
		&payout.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout by transfer reference %s: %w", transferReference, err)
	}
	if completedAt.Valid {
		payout.CompletedAt = &completedAt.Time
	}
	return payout, nil
}

func (r *payoutRepository) UpdateStatusTx(ctx context.Context, querier domain.Querier, payoutID string, status domain.PayoutStatus, failureReason string, completedAt *time.Time) error {
	query := `
		UPDATE payouts
		SET status = $1, failure_reason = NULLIF($2, ''), completed_at = $3, updated_at = $4
		WHERE id = $5
	`
	var completed sql.NullTime
	if completedAt != nil {
		completed = sql.NullTime{Time: *completedAt, Valid: true}
	}
	res, err := querier.ExecContext(ctx, query, status, failureReason, completed, time.Now(), payoutID)
	if err != nil {
		return fmt.Errorf("failed to update payout %s status: %w", payoutID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPayoutNotFound
	}
	return nil
}
