package models

import "time"

const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

const (
	NotificationPending = "pending"
	NotificationRetry   = "retry"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is a queued outbound message; every delivery attempt updates its row.
type Notification struct {
	ID          int64      `json:"id"`
	Channel     string     `json:"channel"`
	Recipient   string     `json:"recipient"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Kind        string     `json:"kind"`
	RelatedID   int64      `json:"related_id"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
