package escrow_repo

import (
	"context"
	"time"

	"nimex/internal/domain"
)

type EscrowRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, escrow *domain.EscrowTransaction) error
	GetByOrderIDTx(ctx context.Context, querier domain.Querier, orderID string) (*domain.EscrowTransaction, error)
	MarkReleasedTx(ctx context.Context, querier domain.Querier, id, releaseReason, releaseType string, releasedAt time.Time) error
	MarkRefundedTx(ctx context.Context, querier domain.Querier, id, refundedBy string, refundedAt time.Time) error
}
