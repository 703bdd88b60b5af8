package domain

import "time"

type OutboxMessageStatus string

const (
	OutboxStatusPending OutboxMessageStatus = "PENDING"
	OutboxStatusSent    OutboxMessageStatus = "SENT"
	OutboxStatusFailed  OutboxMessageStatus = "FAILED"
)

// Outbox message types for the settlement events topic.
const (
	OutboxTypeEscrowReleased   = "escrow.released"
	OutboxTypeEscrowRefunded   = "escrow.refunded"
	OutboxTypePayoutReconciled = "payout.reconciled"
)

// OutboxMessage is a settlement fact written in the same transaction as the
// state change it describes, awaiting publication to Kafka.
type OutboxMessage struct {
	ID          string
	AggregateID string
	MessageType string
	Payload     []byte
	Status      OutboxMessageStatus
	CreatedAt   time.Time
	SentAt      *time.Time
}
