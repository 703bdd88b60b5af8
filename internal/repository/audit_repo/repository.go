package audit_repo

import (
	"context"

	"nimex/internal/domain"
)

type AuditRepository interface {
	CreatePaymentTransactionTx(ctx context.Context, querier domain.Querier, ptx *domain.PaymentTransaction) error
}
