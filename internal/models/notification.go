package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSlack NotificationChannel = "SLACK"
	ChannelInApp NotificationChannel = "IN_APP"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification is an outbound message to a staff user (threshold alerts,
// research request decisions, overdue follow-up reminders).
type Notification struct {
	gorm.Model
	UserID  uint                `json:"user_id" gorm:"index"`
	Subject string              `json:"subject" gorm:"not null"`
	Body    string              `json:"body"`
	Channel NotificationChannel `json:"channel" gorm:"default:EMAIL"`
	Status  NotificationStatus  `json:"status" gorm:"default:PENDING"`
	SentAt  *time.Time          `json:"sent_at"`
	Error   string              `json:"error,omitempty"`
}
