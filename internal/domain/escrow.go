package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

var ErrEscrowNotFound = errors.New("escrow transaction not found")
var ErrVendorNotFound = errors.New("vendor not found")
var ErrOrderNotFound = errors.New("order not found")

// EscrowStateError is returned when a release or refund is attempted on an
// escrow that already left the held state. The message format is part of the
// API contract surfaced to operators.
type EscrowStateError struct {
	Status EscrowStatus
	Action string
}

func (e *EscrowStateError) Error() string {
	return fmt.Sprintf("Escrow status is '%s', cannot %s", e.Status, e.Action)
}

// PlatformFeeRate is the platform's cut of every order, fixed at creation
// time and never recomputed.
var PlatformFeeRate = decimal.NewFromFloat(0.05)

type EscrowTransaction struct {
	ID            string
	OrderID       string
	BuyerID       string
	VendorID      string
	TotalAmount   float64
	PlatformFee   float64
	VendorAmount  float64
	Status        EscrowStatus
	ReleaseReason string
	ReleaseType   string
	RefundedBy    string
	CreatedAt     time.Time
	ReleasedAt    *time.Time
}

// SplitAmount computes the 5%/95% fee split at 2 decimal places using
// half-away-from-zero rounding. The vendor share is derived by subtraction so
// that PlatformFee + VendorAmount always equals the total exactly.
func SplitAmount(total float64) (platformFee, vendorAmount float64) {
	t := decimal.NewFromFloat(total)
	fee := t.Mul(PlatformFeeRate).Round(2)
	vendor := t.Sub(fee)
	platformFee, _ = fee.Float64()
	vendorAmount, _ = vendor.Float64()
	return platformFee, vendorAmount
}
