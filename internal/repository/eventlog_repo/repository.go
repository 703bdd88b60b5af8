package eventlog_repo

import (
	"context"

	"nimex/internal/domain"
)

type EventLogRepository interface {
	Append(ctx context.Context, querier domain.Querier, reference, status string, payload []byte) error
}
