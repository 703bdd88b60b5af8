package domain

import "time"

type PayoutStatus string

const (
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// Payout is created by the withdrawal flow outside this core; the settlement
// engine only reconciles provider-reported transfer outcomes onto it.
type Payout struct {
	ID                string
	VendorID          string
	Amount            float64
	TransferReference string
	Status            string
	FailureReason     string
	CompletedAt       *time.Time
	UpdatedAt         time.Time
}
