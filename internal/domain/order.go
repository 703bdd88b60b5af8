package domain

import "time"

type OrderStatus string

const (
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is owned by the storefront; the settlement core only ever touches the
// payment and escrow fields below.
type Order struct {
	ID               string
	BuyerID          string
	VendorID         string
	TotalAmount      float64
	Status           string
	PaymentStatus    string
	PaymentReference string
	PaymentMethod    string
	PaymentDate      *time.Time
	EscrowID         string
	EscrowStatus     string
	UpdatedAt        time.Time
}
