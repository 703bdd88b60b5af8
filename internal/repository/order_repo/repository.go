package order_repo

import (
	"context"
	"time"

	"nimex/internal/domain"
)

type OrderRepository interface {
	GetByIDTx(ctx context.Context, querier domain.Querier, orderID string) (*domain.Order, error)
	MarkPaidTx(ctx context.Context, querier domain.Querier, orderID, paymentReference, paymentMethod string, paymentDate time.Time) error
	SetEscrowTx(ctx context.Context, querier domain.Querier, orderID, escrowID string, escrowStatus domain.EscrowStatus) error
	MarkEscrowReleasedTx(ctx context.Context, querier domain.Querier, orderID string, at time.Time) error
	MarkRefundedTx(ctx context.Context, querier domain.Querier, orderID string, at time.Time) error
}
