package profile_repo

import (
	"context"
	"database/sql"
	"fmt"

	"nimex/internal/domain"
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetVendorIDByEmailTx(ctx context.Context, querier domain.Querier, email string) (string, error) {
	query := `
		SELECT id
		FROM profiles
		WHERE email = $1 AND role = 'vendor'
	`
	var vendorID string
	err := querier.QueryRowContext(ctx, query, email).Scan(&vendorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", domain.ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to look up vendor profile by email: %w", err)
	}
	return vendorID, nil
}
