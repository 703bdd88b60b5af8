package vendor_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nimex/internal/domain"
)

type vendorRepository struct {
	db *sql.DB
}

func NewVendorRepository(db *sql.DB) *vendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) GetByIDTx(ctx context.Context, querier domain.Querier, vendorID string) (*domain.Vendor, error) {
	query := `
		SELECT id, wallet_balance, total_sales,
		       COALESCE(subscription_plan, ''), COALESCE(subscription_status, ''),
		       subscription_start_date, subscription_end_date, updated_at
		FROM vendors
		WHERE id = $1
		FOR UPDATE
	`
	vendor := &domain.Vendor{}
	var startDate, endDate sql.NullTime
	err := querier.QueryRowContext(ctx, query, vendorID).Scan(
		&vendor.ID,
		&vendor.WalletBalance,
		&vendor.TotalSales,
		&vendor.SubscriptionPlan,
		&vendor.SubscriptionStatus,
		&startDate,
		&endDate,
		&vendor.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrVendorNotFound
		}
		return nil, fmt.Errorf("failed to get vendor %s: %w", vendorID, err)
	}
	if startDate.Valid {
		vendor.SubscriptionStartDate = &startDate.Time
	}
	if endDate.Valid {
		vendor.SubscriptionEndDate = &endDate.Time
	}
	return vendor, nil
}

// CreditWalletTx sets the wallet balance to the value computed from the
// locked pre-read and bumps total_sales. Callers must hold the row lock from
// GetByIDTx in the same transaction.
func (r *vendorRepository) CreditWalletTx(ctx context.Context, querier domain.Querier, vendorID string, newBalance float64) error {
	query := `
		UPDATE vendors
		SET wallet_balance = $1, total_sales = total_sales + 1, updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, newBalance, time.Now(), vendorID)
	if err != nil {
		return fmt.Errorf("failed to credit wallet for vendor %s: %w", vendorID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}

func (r *vendorRepository) UpdateSubscriptionTx(ctx context.Context, querier domain.Querier, vendorID, plan string, status domain.SubscriptionStatus, startDate, endDate time.Time) error {
	query := `
		UPDATE vendors
		SET subscription_plan = $1, subscription_status = $2, subscription_start_date = $3, subscription_end_date = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := querier.ExecContext(ctx, query, plan, status, startDate, endDate, time.Now(), vendorID)
	if err != nil {
		return fmt.Errorf("failed to update subscription for vendor %s: %w", vendorID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}

func (r *vendorRepository) SetSubscriptionStatusTx(ctx context.Context, querier domain.Querier, vendorID string, status domain.SubscriptionStatus) error {
	query := `
		UPDATE vendors
		SET subscription_status = $1, updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, status, time.Now(), vendorID)
	if err != nil {
		return fmt.Errorf("failed to set subscription status for vendor %s: %w", vendorID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}
