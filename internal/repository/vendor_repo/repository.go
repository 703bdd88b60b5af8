package vendor_repo

import (
	"context"
	"time"

	"nimex/internal/domain"
)

type VendorRepository interface {
	GetByIDTx(ctx context.Context, querier domain.Querier, vendorID string) (*domain.Vendor, error)
	CreditWalletTx(ctx context.Context, querier domain.Querier, vendorID string, newBalance float64) error
	UpdateSubscriptionTx(ctx context.Context, querier domain.Querier, vendorID, plan string, status domain.SubscriptionStatus, startDate, endDate time.Time) error
	SetSubscriptionStatusTx(ctx context.Context, querier domain.Querier, vendorID string, status domain.SubscriptionStatus) error
}
