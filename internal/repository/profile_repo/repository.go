package profile_repo

import (
	"context"

	"nimex/internal/domain"
)

type ProfileRepository interface {
	GetVendorIDByEmailTx(ctx context.Context, querier domain.Querier, email string) (string, error)
}
