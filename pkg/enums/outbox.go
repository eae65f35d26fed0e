package enums

// OutboxEventType names a domain event queued for publication.
type OutboxEventType string

const (
	EventOrderPlaced     OutboxEventType = "order.placed"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventOrderStatus     OutboxEventType = "order.status_changed"
	EventPaymentSettled  OutboxEventType = "payment.settled"
	EventPayoutCompleted OutboxEventType = "payout.completed"
	EventPayoutFailed    OutboxEventType = "payout.failed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregatePayout OutboxAggregateType = "vendor_payout"
)
