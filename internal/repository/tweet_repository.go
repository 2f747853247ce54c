package repository

import (
	"context"
	"errors"

	"github.com/chirpsocial/backend/internal/models"
	"gorm.io/gorm"
)

// TweetRepository handles row-level tweet storage. Relationship sets
// (likes, retweets, mentions, hashtags) go through Relation.
type TweetRepository interface {
	WithTx(tx *gorm.DB) TweetRepository

	Create(ctx context.Context, tweet *models.Tweet) error
	Get(ctx context.Context, tweetID string) (*models.Tweet, error)
	GetMany(ctx context.Context, tweetIDs []string) (map[string]*models.Tweet, error)
	Delete(ctx context.Context, tweetIDs ...string) error
	Replies(ctx context.Context, tweetID string, limit int) ([]*models.Tweet, error)
	RetweetMarkers(ctx context.Context, originalID string) ([]*models.Tweet, error)

	AdjustCounter(ctx context.Context, tweetID string, c Counter, delta int) error
	SetCounters(ctx context.Context, tweetID string, values map[Counter]int64) error
	AllIDs(ctx context.Context) ([]string, error)
}

type tweetRepository struct {
	db *gorm.DB
}

// NewTweetRepository creates a new tweet repository
func NewTweetRepository(db *gorm.DB) TweetRepository {
	return &tweetRepository{db: db}
}

func (r *tweetRepository) WithTx(tx *gorm.DB) TweetRepository {
	return &tweetRepository{db: tx}
}

func (r *tweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	if tweet == nil || tweet.AuthorID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(tweet).Error
}

func (r *tweetRepository) Get(ctx context.Context, tweetID string) (*models.Tweet, error) {
	var tweet models.Tweet
	err := r.db.WithContext(ctx).Where("id = ?", tweetID).First(&tweet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTweetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tweet, nil
}

func (r *tweetRepository) GetMany(ctx context.Context, tweetIDs []string) (map[string]*models.Tweet, error) {
	out := make(map[string]*models.Tweet, len(tweetIDs))
	if len(tweetIDs) == 0 {
		return out, nil
	}
	var tweets []*models.Tweet
	if err := r.db.WithContext(ctx).Where("id IN ?", tweetIDs).Find(&tweets).Error; err != nil {
		return nil, err
	}
	for _, t := range tweets {
		out[t.ID] = t
	}
	return out, nil
}

func (r *tweetRepository) Delete(ctx context.Context, tweetIDs ...string) error {
	if len(tweetIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", tweetIDs).Delete(&models.Tweet{}).Error
}

// Replies returns direct replies, newest first
func (r *tweetRepository) Replies(ctx context.Context, tweetID string, limit int) ([]*models.Tweet, error) {
	var replies []*models.Tweet
	err := r.db.WithContext(ctx).
		Where("parent_tweet_id = ?", tweetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&replies).Error
	return replies, err
}

// RetweetMarkers returns every synthetic retweet of originalID
func (r *tweetRepository) RetweetMarkers(ctx context.Context, originalID string) ([]*models.Tweet, error) {
	var markers []*models.Tweet
	err := r.db.WithContext(ctx).
		Where("is_retweet = ? AND original_tweet_id = ?", true, originalID).
		Find(&markers).Error
	return markers, err
}

func (r *tweetRepository) AdjustCounter(ctx context.Context, tweetID string, c Counter, delta int) error {
	return adjust(r.db.WithContext(ctx), &models.Tweet{}, tweetID, c, delta)
}

func (r *tweetRepository) SetCounters(ctx context.Context, tweetID string, values map[Counter]int64) error {
	updates := make(map[string]interface{}, len(values))
	for c, v := range values {
		updates[string(c)] = v
	}
	return r.db.WithContext(ctx).Model(&models.Tweet{}).Where("id = ?", tweetID).UpdateColumns(updates).Error
}

func (r *tweetRepository) AllIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Tweet{}).Where("is_retweet = ?", false).Pluck("id", &ids).Error
	return ids, err
}
