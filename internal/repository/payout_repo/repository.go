package payout_repo

import (
	"context"
	"time"

	"nimex/internal/domain"
)

type PayoutRepository interface {
	GetByTransferReferenceTx(ctx context.Context, querier domain.Querier, transferReference string) (*domain.Payout, error)
	UpdateStatusTx(ctx context.Context, querier domain.Querier, payoutID string, status domain.PayoutStatus, failureReason string, completedAt *time.Time) error
}
