package wallet_repo

import (
	"context"

	"nimex/internal/domain"
)

type WalletRepository interface {
	AppendTransactionTx(ctx context.Context, querier domain.Querier, wtx *domain.WalletTransaction) error
}
