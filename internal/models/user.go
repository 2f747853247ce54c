package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray is stored as a JSON array in a text column. Media refs are
// opaque and may contain any character, so no delimiter format is safe.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into StringArray", value)
	}

	if len(data) == 0 {
		*a = StringArray{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("models: decode StringArray: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*a = out
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// User is an account. The follower/following sets live in the follows
// table; the counts here are caches maintained in the same transaction.
type User struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	FollowerCount  int `gorm:"default:0;not null" json:"follower_count"`
	FollowingCount int `gorm:"default:0;not null" json:"following_count"`
	TweetCount     int `gorm:"default:0;not null" json:"tweet_count"`

	UnreadNotifications int `gorm:"default:0;not null" json:"unread_notifications"`
	UnreadMessages      int `gorm:"default:0;not null" json:"unread_messages"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the embedded author/sender shape, without private counters
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Public strips the private unread counters
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// Follow is one edge of the social graph. A single row is both
// "follower follows followee" and "followee is followed by follower".
type Follow struct {
	FollowerID string    `gorm:"primaryKey;size:36" json:"follower_id"`
	FolloweeID string    `gorm:"primaryKey;size:36;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}

// All lists every model for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&Tweet{},
		&TweetLike{},
		&TweetRetweet{},
		&TweetMention{},
		&TweetHashtag{},
		&Notification{},
		&Conversation{},
		&ConversationMember{},
		&Message{},
	}
}
