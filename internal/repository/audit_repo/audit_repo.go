package audit_repo

import (
	"context"
	"database/sql"
	"fmt"

	"nimex/internal/domain"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) CreatePaymentTransactionTx(ctx context.Context, querier domain.Querier, ptx *domain.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (id, vendor_id, type, amount, reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := querier.ExecContext(ctx, query,
		ptx.ID,
		ptx.VendorID,
		ptx.Type,
		ptx.Amount,
		ptx.Reference,
		ptx.Status,
		ptx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment transaction audit row: %w", err)
	}
	return nil
}
