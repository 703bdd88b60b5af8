package wallet_repo

import (
	"context"
	"database/sql"
	"fmt"

	"nimex/internal/domain"

	"github.com/lib/pq"
)

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *walletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) AppendTransactionTx(ctx context.Context, querier domain.Querier, wtx *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, vendor_id, type, amount, balance_after, reference, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := querier.ExecContext(ctx, query,
		wtx.ID,
		wtx.VendorID,
		wtx.Type,
		wtx.Amount,
		wtx.BalanceAfter,
		wtx.Reference,
		wtx.Description,
		wtx.Status,
		wtx.CreatedAt,
	)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrDuplicateWalletTransaction
		}
		return fmt.Errorf("failed to append wallet transaction for vendor %s: %w", wtx.VendorID, err)
	}
	return nil
}
