package webhook

import "strings"

type ReferenceKind int

const (
	ReferenceUnknown ReferenceKind = iota
	ReferenceOrder
	ReferenceSubscription
)

// ParsedReference is the discriminated result of decoding a payment
// reference. Exactly one of the Order/Subscription field groups is set.
type ParsedReference struct {
	Kind     ReferenceKind
	OrderID  string
	VendorID string
	Plan     string
}

// ParseReference decodes a provider reference string. Subscription references
// follow <prefix>-SUB-<vendorID>-<plan>-<timestamp> and win every tie; order
// references come from metadata.order_id when present, falling back to the
// second segment of <prefix>-<orderID>-<timestamp>. Anything else is unknown
// and handled as log-only by the caller.
func ParseReference(reference, metadataOrderID string) ParsedReference {
	parts := strings.Split(reference, "-")
	if len(parts) >= 5 && parts[1] == "SUB" {
		return ParsedReference{Kind: ReferenceSubscription, VendorID: parts[2], Plan: parts[3]}
	}
	if metadataOrderID != "" {
		return ParsedReference{Kind: ReferenceOrder, OrderID: metadataOrderID}
	}
	if len(parts) >= 3 && parts[1] != "" {
		return ParsedReference{Kind: ReferenceOrder, OrderID: parts[1]}
	}
	return ParsedReference{Kind: ReferenceUnknown}
}
