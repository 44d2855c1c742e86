package models

import "time"

// Notification types.
const (
	NotifyReviewRequest   = "review_request"
	NotifyReviewCompleted = "review_completed"
	NotifyApprovalResult  = "approval_result"
	NotifyStatusUpdate    = "status_update"
	NotifyOverdueReminder = "overdue_reminder"
)

// Delivery channel tags. The engine records the channel set; actual chat
// delivery is an external sink's concern, email goes through config.SendMail.
const (
	ChannelInternal = "internal"
	ChannelChat     = "chat"
	ChannelEmail    = "email"
)

type Notification struct {
	NotificationID     uint       `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	RecipientID        uint       `gorm:"column:recipient_id;index" json:"recipient_id"`
	RecipientName      string     `gorm:"column:recipient_name" json:"recipient_name"`
	Title              string     `gorm:"column:title" json:"title"`
	Content            string     `gorm:"column:content;type:text" json:"content"`
	Type               string     `gorm:"column:type" json:"type"`
	Channels           []string   `gorm:"column:channels;serializer:json;type:text" json:"channels"`
	RelatedAlgorithmID *uint      `gorm:"column:related_algorithm_id" json:"related_algorithm_id,omitempty"`
	IsRead             bool       `gorm:"column:is_read" json:"is_read"`
	CreateAt           time.Time  `gorm:"column:create_at" json:"created_at"`
	UpdateAt           *time.Time `gorm:"column:update_at" json:"-"`
}

func (Notification) TableName() string { return "notifications" }
