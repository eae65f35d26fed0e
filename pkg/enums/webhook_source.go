package enums

// WebhookSource identifies which external system delivered a webhook event.
type WebhookSource string

const (
	WebhookSourcePaymob  WebhookSource = "paymob"
	WebhookSourcePayouts WebhookSource = "payouts"
)

// String implements fmt.Stringer.
func (w WebhookSource) String() string {
	return string(w)
}
