package enums

// OutboxEventType labels domain events queued through the outbox.
type OutboxEventType string

const (
	EventIntentSigned      OutboxEventType = "mandate.intent_signed"
	EventMonitoringStarted OutboxEventType = "monitoring.job_started"
	EventMonitoringChecked OutboxEventType = "monitoring.check_complete"
	EventMonitoringExpired OutboxEventType = "monitoring.job_expired"
	EventMonitoringDone    OutboxEventType = "monitoring.job_completed"
	EventMonitoringFailed  OutboxEventType = "monitoring.job_failed"
	EventPurchaseAuthorized OutboxEventType = "purchase.authorized"
	EventPurchaseDeclined   OutboxEventType = "purchase.declined"
)

// OutboxAggregateType labels the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateMandate       OutboxAggregateType = "mandate"
	AggregateMonitoringJob OutboxAggregateType = "monitoring_job"
	AggregateTransaction   OutboxAggregateType = "transaction"
)
