package domain

import "time"

// Provider event types this core recognizes. Anything else is acknowledged
// and logged without side effects.
const (
	EventChargeSuccess        = "charge.success"
	EventChargeAbandoned      = "charge.abandoned"
	EventTransferSuccess      = "transfer.success"
	EventTransferFailed       = "transfer.failed"
	EventSubscriptionCreate   = "subscription.create"
	EventSubscriptionNotRenew = "subscription.not_renew"
)

// PaymentEvent is the parsed form of one webhook delivery. It lives only for
// the duration of the request; the raw payload is what the event log keeps.
type PaymentEvent struct {
	Type       string
	Reference  string
	Amount     float64
	OrderID    string
	CustomerID string
	Email      string
	Reason     string
	RawPayload []byte
}

// EscrowReleasedEvent is published to the settlement topic when an escrow is
// released to a vendor's wallet.
type EscrowReleasedEvent struct {
	EscrowID     string    `json:"escrow_id"`
	OrderID      string    `json:"order_id"`
	VendorID     string    `json:"vendor_id"`
	VendorAmount float64   `json:"vendor_amount"`
	PlatformFee  float64   `json:"platform_fee"`
	ReleaseType  string    `json:"release_type"`
	Timestamp    time.Time `json:"timestamp"`
}

// EscrowRefundedEvent is published when held funds are returned to the buyer.
type EscrowRefundedEvent struct {
	EscrowID   string    `json:"escrow_id"`
	OrderID    string    `json:"order_id"`
	BuyerID    string    `json:"buyer_id"`
	Amount     float64   `json:"amount"`
	Reason     string    `json:"reason"`
	RefundedBy string    `json:"refunded_by"`
	Timestamp  time.Time `json:"timestamp"`
}

// PayoutReconciledEvent is published when a provider transfer outcome is
// matched to a tracked payout.
type PayoutReconciledEvent struct {
	PayoutID          string    `json:"payout_id"`
	VendorID          string    `json:"vendor_id"`
	TransferReference string    `json:"transfer_reference"`
	Status            string    `json:"status"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}
