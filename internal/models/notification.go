package models

import "time"

type NotificationType string

const (
	NotificationAttribution   NotificationType = "attribution_succeeded"
	NotificationCriticalStock NotificationType = "critical_stock"
	NotificationManual        NotificationType = "manual"
)

// Notification is written once and read by its recipient, newest first.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"index;not null" json:"recipient_id"`
	Recipient   User             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type        NotificationType `gorm:"size:40;not null" json:"type"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	SentAt      time.Time        `gorm:"index;not null" json:"sent_at"`
	CreatedAt   time.Time        `json:"created_at"`
}
