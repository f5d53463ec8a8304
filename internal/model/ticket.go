package model

import "time"

// TicketRecord links a complaint to the external ticket raised for it.
type TicketRecord struct {
	ComplaintID string    `json:"complaint_id"`
	TicketID    string    `json:"ticket_id"`
	Key         string    `json:"key"`
	Link        string    `json:"link"`
	Status      string    `json:"status"`
	Token       string    `json:"token"`
	Run         int       `json:"run"`
	Superseded  bool      `json:"superseded"`
	Reused      bool      `json:"reused,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeliveryStatus reports the outcome of a notification.
type DeliveryStatus string

// Delivery statuses.
const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Audience of a notification.
type Audience string

// Audiences.
const (
	AudienceTeam     Audience = "team"
	AudienceCustomer Audience = "customer"
)

// NotificationRecord records one delivery attempt. Recipient is stored
// redacted.
type NotificationRecord struct {
	Audience  Audience       `json:"audience"`
	Recipient string         `json:"recipient"`
	Status    DeliveryStatus `json:"status"`
	SentAt    time.Time      `json:"sent_at"`
}
