// Package timeline assembles reverse-chronological feeds straight from the
// graph tables at read time. Nothing is materialized per follower when a
// tweet is posted, so read cost grows with the size of the following set.
package timeline

import (
	"context"
	"strings"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Feed is one page of tweets
type Feed struct {
	Tweets     []*models.Tweet `json:"tweets"`
	Pagination util.Pagination `json:"pagination"`
}

// Service handles feed generation
type Service struct {
	db    *gorm.DB
	graph *graph.Store
}

// NewService creates a timeline service over the graph store's database
func NewService(db *gorm.DB, store *graph.Store) *Service {
	return &Service{db: db, graph: store}
}

// GetTimeline returns tweets by the user or anyone they follow, plus tweets
// that mention the user. Replies are left out; retweet markers are kept.
func (s *Service) GetTimeline(ctx context.Context, userID string, page util.Page) (*Feed, error) {
	if _, err := s.graph.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.feed(ctx, "timeline", userID, page, func(db *gorm.DB) *gorm.DB {
		following := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)
		mentioning := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.TweetMention{}).Select("tweet_id").Where("user_id = ?", userID)
		return db.
			Where("parent_tweet_id IS NULL").
			Where(db.Session(&gorm.Session{NewDB: true}).
				Where("author_id = ?", userID).
				Or("author_id IN (?)", following).
				Or("id IN (?)", mentioning))
	})
}

// UserTweets returns a user's own tweets and retweets, without replies
func (s *Service) UserTweets(ctx context.Context, viewerID, username string, page util.Page) (*Feed, error) {
	author, err := s.graph.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.feed(ctx, "user", viewerID, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ? AND parent_tweet_id IS NULL", author.ID)
	})
}

// ByHashtag returns every tweet carrying the tag, replies included
func (s *Service) ByHashtag(ctx context.Context, viewerID, tag string, page util.Page) (*Feed, error) {
	tags := util.NormalizeTags([]string{tag})
	if len(tags) == 0 {
		return nil, errors.InvalidOperation("hashtag is required")
	}
	tag = tags[0]
	return s.feed(ctx, "hashtag", viewerID, page, func(db *gorm.DB) *gorm.DB {
		tagged := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.TweetHashtag{}).Select("tweet_id").Where("tag = ?", strings.ToLower(tag))
		return db.Where("id IN (?)", tagged)
	})
}

// feed counts and pages the scoped query concurrently, then hydrates the
// page for the viewer
func (s *Service) feed(ctx context.Context, name, viewerID string, page util.Page, scope func(*gorm.DB) *gorm.DB) (*Feed, error) {
	timer := prometheus.NewTimer(metrics.Get().FeedGenerationTime.WithLabelValues(name))
	defer timer.ObserveDuration()

	var (
		tweets []*models.Tweet
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(s.db.WithContext(gctx).Model(&models.Tweet{})).Count(&total).Error
	})
	g.Go(func() error {
		return scope(s.db.WithContext(gctx)).
			Order("created_at DESC").
			Order("id DESC").
			Limit(page.Limit).
			Offset(page.Offset()).
			Find(&tweets).Error
	})
	if err := g.Wait(); err != nil {
		logger.Log.Error("Failed to assemble feed",
			zap.String("feed", name),
			logger.WithUserID(viewerID),
			zap.Error(err))
		return nil, errors.Internal("failed to load feed", err)
	}

	if err := s.graph.Hydrate(ctx, viewerID, tweets...); err != nil {
		return nil, err
	}
	if tweets == nil {
		tweets = []*models.Tweet{}
	}
	return &Feed{Tweets: tweets, Pagination: util.NewPagination(page, total)}, nil
}
