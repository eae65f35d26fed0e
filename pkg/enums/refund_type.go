package enums

// RefundType distinguishes reversing an unsettled charge from returning settled money.
type RefundType string

const (
	RefundTypeVoid   RefundType = "void"
	RefundTypeRefund RefundType = "refund"
	RefundTypeNone   RefundType = "none"
)

// String implements fmt.Stringer.
func (r RefundType) String() string {
	return string(r)
}
