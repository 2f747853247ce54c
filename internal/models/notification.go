package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// NotificationType is what the sender did
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationRetweet NotificationType = "retweet"
	NotificationReply   NotificationType = "reply"
	NotificationMention NotificationType = "mention"
	NotificationFollow  NotificationType = "follow"
	NotificationQuote   NotificationType = "quote"
)

// Notification is a durable record of an interaction. DedupeKey is unique,
// so a repeated (type, sender, recipient, tweet) tuple inserts nothing.
type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	RecipientID string           `gorm:"size:36;not null;index:idx_notifications_recipient_created,priority:1" json:"recipient_id"`
	SenderID    string           `gorm:"size:36;not null" json:"sender_id"`
	Sender      *PublicUser      `gorm:"-" json:"sender,omitempty"`
	Type        NotificationType `gorm:"size:16;not null" json:"type"`
	TweetID     *string          `gorm:"size:36;index" json:"tweet_id,omitempty"`
	Tweet       *Tweet           `gorm:"-" json:"tweet,omitempty"`
	Read        bool             `gorm:"default:false;not null" json:"read"`
	DedupeKey   string           `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_recipient_created,priority:2,sort:desc" json:"created_at"`
}

// NotificationDedupeKey builds the uniqueness key for a notification
func NotificationDedupeKey(t NotificationType, senderID, recipientID string, tweetID *string) string {
	tid := ""
	if tweetID != nil {
		tid = *tweetID
	}
	return fmt.Sprintf("%s:%s:%s:%s", t, senderID, recipientID, tid)
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	if n.DedupeKey == "" {
		n.DedupeKey = NotificationDedupeKey(n.Type, n.SenderID, n.RecipientID, n.TweetID)
	}
	return nil
}
