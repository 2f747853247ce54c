// Package graph owns the durable social graph: tweets, follows, likes and
// retweets. Every mutation that changes a set also changes the cached
// counters on both sides, inside one transaction.
package graph

import (
	"context"
	stderrors "errors"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/repository"
	"gorm.io/gorm"
)

// Store is the graph store
type Store struct {
	db       *gorm.DB
	users    repository.UserRepository
	tweets   repository.TweetRepository
	follows  *repository.Relation[models.Follow]
	likes    *repository.Relation[models.TweetLike]
	retweets *repository.Relation[models.TweetRetweet]
	mentions *repository.Relation[models.TweetMention]
	hashtags *repository.Relation[models.TweetHashtag]
}

// NewStore creates a graph store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		users:    repository.NewUserRepository(db),
		tweets:   repository.NewTweetRepository(db),
		follows:  repository.NewRelation[models.Follow](db),
		likes:    repository.NewRelation[models.TweetLike](db),
		retweets: repository.NewRelation[models.TweetRetweet](db),
		mentions: repository.NewRelation[models.TweetMention](db),
		hashtags: repository.NewRelation[models.TweetHashtag](db),
	}
}

// tx runs fn with a Store bound to a transaction. APIErrors returned by fn
// pass through untouched; anything else is wrapped as internal.
func (s *Store) tx(ctx context.Context, op string, fn func(t *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{
			db:       tx,
			users:    s.users.WithTx(tx),
			tweets:   s.tweets.WithTx(tx),
			follows:  s.follows.WithTx(tx),
			likes:    s.likes.WithTx(tx),
			retweets: s.retweets.WithTx(tx),
			mentions: s.mentions.WithTx(tx),
			hashtags: s.hashtags.WithTx(tx),
		})
	})
	if err == nil {
		return nil
	}
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return errors.Internal(op, err)
}

// GetUser loads a user or NOT_FOUND
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, errors.Internal("failed to load user", err)
	}
	return u, nil
}

// GetUserByUsername loads a user by handle or NOT_FOUND
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, errors.Internal("failed to load user", err)
	}
	return u, nil
}

func (s *Store) getTweet(ctx context.Context, tweetID string) (*models.Tweet, error) {
	t, err := s.tweets.Get(ctx, tweetID)
	if stderrors.Is(err, repository.ErrTweetNotFound) {
		return nil, errors.NotFound("tweet")
	}
	if err != nil {
		return nil, errors.Internal("failed to load tweet", err)
	}
	return t, nil
}
