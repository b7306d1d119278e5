package kafka

// Kafka topics
const (
	TopicPaymentNotifications = "payment-notifications"
)

// Message headers
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderTenantID  = "tenant_id"
)
