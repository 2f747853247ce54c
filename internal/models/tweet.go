package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxTweetLength is measured in runes
const MaxTweetLength = 280

// Tweet is an original post, a reply (ParentTweetID), a quote (QuotedTweetID)
// or a retweet marker (IsRetweet with OriginalTweetID and nothing else).
type Tweet struct {
	ID       string      `gorm:"primaryKey;size:36" json:"id"`
	AuthorID string      `gorm:"size:36;not null;index:idx_tweets_author_created,priority:1" json:"author_id"`
	Author   *PublicUser `gorm:"-" json:"author,omitempty"`

	Content string      `gorm:"type:text" json:"content"`
	Media   StringArray `gorm:"type:text" json:"media"`

	ParentTweetID   *string `gorm:"size:36;index" json:"parent_tweet_id,omitempty"`
	QuotedTweetID   *string `gorm:"size:36;index" json:"quoted_tweet_id,omitempty"`
	IsRetweet       bool    `gorm:"default:false;not null" json:"is_retweet"`
	OriginalTweetID *string `gorm:"size:36;index" json:"original_tweet_id,omitempty"`

	// display copies; queries go through tweet_hashtags / tweet_mentions
	Hashtags StringArray `gorm:"type:text" json:"hashtags"`
	Mentions StringArray `gorm:"type:text" json:"mentions"`

	LikeCount    int `gorm:"default:0;not null" json:"like_count"`
	RetweetCount int `gorm:"default:0;not null" json:"retweet_count"`
	ReplyCount   int `gorm:"default:0;not null" json:"reply_count"`

	CreatedAt time.Time `gorm:"index:idx_tweets_author_created,priority:2,sort:desc;index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// filled on read
	Original  *Tweet `gorm:"-" json:"original_tweet,omitempty"`
	Quoted    *Tweet `gorm:"-" json:"quoted_tweet,omitempty"`
	Liked     bool   `gorm:"-" json:"liked"`
	Retweeted bool   `gorm:"-" json:"retweeted"`
}

func (t *Tweet) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	return nil
}

// WithoutViewer returns a copy with the per-viewer flags cleared, for
// payloads that every client receives
func (t *Tweet) WithoutViewer() *Tweet {
	if t == nil {
		return nil
	}
	c := *t
	c.Liked, c.Retweeted = false, false
	c.Original = t.Original.WithoutViewer()
	c.Quoted = t.Quoted.WithoutViewer()
	return &c
}

// IsReply reports whether the tweet answers another tweet
func (t *Tweet) IsReply() bool {
	return t.ParentTweetID != nil
}

// TweetLike is membership in a tweet's likes set
type TweetLike struct {
	TweetID   string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time `gorm:"index"`
}

// TweetRetweet is membership in a tweet's retweets set. MarkerID points at
// the synthetic tweet that shows the retweet in the actor's feed.
type TweetRetweet struct {
	TweetID   string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36;index"`
	MarkerID  string `gorm:"size:36;uniqueIndex"`
	CreatedAt time.Time
}

type TweetMention struct {
	TweetID string `gorm:"primaryKey;size:36"`
	UserID  string `gorm:"primaryKey;size:36;index"`
}

type TweetHashtag struct {
	TweetID string `gorm:"primaryKey;size:36"`
	Tag     string `gorm:"primaryKey;size:64;index"`
}
