package types

import "strings"

// Address is the shipping destination snapshotted onto an order.
// Stored as jsonb via the gorm json serializer.
type Address struct {
	FullName    string  `json:"full_name"`
	Line1       string  `json:"line1"`
	Line2       *string `json:"line2,omitempty"`
	City        string  `json:"city"`
	Governorate string  `json:"governorate"`
	PostalCode  string  `json:"postal_code,omitempty"`
	Country     string  `json:"country"`
	Phone       string  `json:"phone"`
}

// Validate reports the first missing required field, or "".
func (a Address) Validate() string {
	switch {
	case strings.TrimSpace(a.FullName) == "":
		return "full_name"
	case strings.TrimSpace(a.Line1) == "":
		return "line1"
	case strings.TrimSpace(a.City) == "":
		return "city"
	case strings.TrimSpace(a.Phone) == "":
		return "phone"
	default:
		return ""
	}
}
