package domain

import (
	"errors"
	"time"
)

var ErrPayoutNotFound = errors.New("payout not found")
var ErrProfileNotFound = errors.New("profile not found")
var ErrDuplicateWalletTransaction = errors.New("wallet transaction already recorded")

// PaymentTransaction is an audit row recorded for every subscription charge.
type PaymentTransaction struct {
	ID        string
	VendorID  string
	Type      string
	Amount    float64
	Reference string
	Status    string
	CreatedAt time.Time
}

const PaymentTransactionTypeSubscription = "subscription"
