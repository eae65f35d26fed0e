package types

import "strings"

// BankDetails is the vendor bank account snapshot captured into a payout.
// It is parsed out of the vendor settings blob at order time and never
// re-read live, so later edits do not retouch in-flight payouts.
type BankDetails struct {
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	HolderName    string `json:"holder_name"`
	BankName      string `json:"bank_name"`
}

// Complete reports whether every field needed for a transfer is present.
func (b BankDetails) Complete() bool {
	return strings.TrimSpace(b.AccountNumber) != "" &&
		strings.TrimSpace(b.RoutingNumber) != "" &&
		strings.TrimSpace(b.HolderName) != ""
}

// VendorSettings is the free-form vendor configuration blob. Bank details
// live under the "bank" key; everything else is opaque to the payout path.
type VendorSettings struct {
	Bank         *BankDetails   `json:"bank,omitempty"`
	SupportEmail string         `json:"support_email,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}
