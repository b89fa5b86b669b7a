package shop

import (
	"encoding/json"
	"time"
)

const (
	EventWebhookReceived = "WebhookReceived"
	EventSyncCompleted   = "SyncCompleted"
)

// Envelope wraps every message relayed to the event bus.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // shop domain
	Payload       json.RawMessage `json:"payload"`
}

type WebhookReceivedPayload struct {
	EventID  int64           `json:"event_id"`
	TenantID int64           `json:"tenant_id"`
	Topic    string          `json:"topic"`
	Body     json.RawMessage `json:"body"`
}

type SyncCompletedPayload struct {
	TenantID  int64     `json:"tenant_id"`
	Domain    string    `json:"shop_domain"`
	Customers int       `json:"customers"`
	Products  int       `json:"products"`
	Orders    int       `json:"orders"`
	Skipped   int       `json:"skipped"`
	Error     string    `json:"error,omitempty"`
	Finished  time.Time `json:"finished_at"`
}
