package outbox

import (
	"context"
	"database/sql"
	"time"

	"nimex/internal/domain"
	kafka_infra "nimex/internal/infrastructure/kafka"
	"nimex/internal/repository/outbox_repo"

	"go.uber.org/zap"
)

// Processor polls the outbox table and publishes pending settlement events
// to Kafka, marking each row SENT once the broker accepts it.
type Processor struct {
	db           *sql.DB
	outboxRepo   outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

func NewProcessor(
	db *sql.DB,
	outboxRepo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:           db,
		outboxRepo:   outboxRepo,
		producer:     producer,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor context cancelled, stopping.")
			return
		case <-ticker.C:
			p.processOutboxMessages(ctx)
		}
	}
}

func (p *Processor) processOutboxMessages(ctx context.Context) {
	dbQueryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	messages, err := p.outboxRepo.GetPendingMessages(dbQueryCtx, p.db, 10)
	if err != nil {
		p.logger.Error("Failed to get pending outbox messages", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	p.logger.Info("Found pending outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := p.producer.Produce(ctx, msg.AggregateID, msg.Payload); err != nil {
			p.logger.Error("Failed to publish outbox message",
				zap.String("message_id", msg.ID),
				zap.String("message_type", msg.MessageType),
				zap.Error(err))
			continue
		}

		if err := p.outboxRepo.UpdateMessageStatusTx(ctx, p.db, msg.ID, domain.OutboxStatusSent); err != nil {
			// The message will be re-published on the next poll; consumers
			// are expected to deduplicate by message id.
			p.logger.Error("Failed to mark outbox message SENT",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}

		p.logger.Info("Outbox message published",
			zap.String("message_id", msg.ID),
			zap.String("message_type", msg.MessageType))
	}
}
