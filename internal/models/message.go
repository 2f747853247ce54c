package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ConversationID is the canonical id for the pair: the two user ids sorted
// and joined with "_", so ConversationID(a, b) == ConversationID(b, a).
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// Conversation is the per-pair channel
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:80" json:"id"`
	LastMessageID *string   `gorm:"size:36" json:"last_message_id,omitempty"`
	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConversationMember is one side of a conversation with that side's unread
// count. Each conversation has exactly two members.
type ConversationMember struct {
	ConversationID string `gorm:"primaryKey;size:80"`
	UserID         string `gorm:"primaryKey;size:36;index"`
	OtherUserID    string `gorm:"size:36;not null"`
	UnreadCount    int    `gorm:"default:0;not null"`
}

// Message is a direct message. Content and Media may not both be empty.
type Message struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string      `gorm:"size:80;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string      `gorm:"size:36;not null" json:"sender_id"`
	RecipientID    string      `gorm:"size:36;not null;index" json:"recipient_id"`
	Content        string      `gorm:"type:text" json:"content"`
	Media          StringArray `gorm:"type:text" json:"media"`
	Read           bool        `gorm:"default:false;not null" json:"read"`
	CreatedAt      time.Time   `gorm:"index:idx_messages_conversation_created,priority:2,sort:desc" json:"created_at"`

	Sender *PublicUser `gorm:"-" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
