package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

type Vendor struct {
	ID                    string
	WalletBalance         float64
	TotalSales            int64
	SubscriptionPlan      string
	SubscriptionStatus    string
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	UpdatedAt             time.Time
}

// WalletTransaction is an append-only ledger row recording a single wallet
// credit. BalanceAfter is taken from the balance committed in the same
// transaction, so the ledger reconstructs balance history exactly.
type WalletTransaction struct {
	ID           string
	VendorID     string
	Type         string
	Amount       float64
	BalanceAfter float64
	Reference    string
	Description  string
	Status       string
	CreatedAt    time.Time
}

const WalletTransactionTypeSale = "sale"
