package eventlog_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nimex/internal/domain"
	"nimex/internal/util"
)

type eventLogRepository struct {
	db *sql.DB
}

func NewEventLogRepository(db *sql.DB) *eventLogRepository {
	return &eventLogRepository{db: db}
}

func (r *eventLogRepository) Append(ctx context.Context, querier domain.Querier, reference, status string, payload []byte) error {
	query := `
		INSERT INTO payment_events (id, reference, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := querier.ExecContext(ctx, query, util.GenerateUUID(), reference, status, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append payment event: %w", err)
	}
	return nil
}
