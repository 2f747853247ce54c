// Package social runs each user action as one unit of work: the graph
// mutation commits first, then notifications are derived and stored, then
// connected clients are told. Nothing after the commit can fail the action.
package social

import (
	"context"

	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/realtime"
	"go.uber.org/zap"
)

// Service orchestrates graph writes, fan-out and dispatch
type Service struct {
	graph         *graph.Store
	notifications *notifications.Engine
	dispatcher    realtime.Dispatcher
}

// NewService wires the orchestration layer. A nil dispatcher disables pushes.
func NewService(store *graph.Store, engine *notifications.Engine, dispatcher realtime.Dispatcher) *Service {
	if dispatcher == nil {
		dispatcher = realtime.Nop{}
	}
	return &Service{graph: store, notifications: engine, dispatcher: dispatcher}
}

// RemovedTweet is the tweet-updated payload for a deleted tweet
type RemovedTweet struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// PostTweet creates a tweet, notifies the parent author, quoted author and
// mentioned users, and broadcasts it to everyone but originConn
func (s *Service) PostTweet(ctx context.Context, authorID string, in graph.NewTweet, originConn string) (*models.Tweet, error) {
	posted, err := s.graph.CreateTweet(ctx, authorID, in)
	if err != nil {
		return nil, err
	}
	tweet := posted.Tweet

	s.notifications.Emit(ctx, notifications.PostEvents(
		authorID, tweet, posted.ParentAuthorID, posted.QuotedAuthorID, posted.MentionedIDs)...)

	s.dispatcher.Broadcast(realtime.EventTweetCreated, tweet.WithoutViewer(), originConn)
	if tweet.ParentTweetID != nil {
		s.broadcastUpdated(ctx, *tweet.ParentTweetID, originConn)
	}
	return tweet, nil
}

// DeleteTweet removes the requester's tweet and tells clients it is gone
func (s *Service) DeleteTweet(ctx context.Context, tweetID, requesterID, originConn string) error {
	deleted, err := s.graph.DeleteTweet(ctx, tweetID, requesterID)
	if err != nil {
		return err
	}
	s.dispatcher.Broadcast(realtime.EventTweetUpdated, RemovedTweet{ID: deleted.Tweet.ID, Deleted: true}, originConn)
	switch {
	case deleted.Original != nil:
		s.dispatcher.Broadcast(realtime.EventTweetUpdated, deleted.Original.WithoutViewer(), originConn)
	case deleted.Tweet.ParentTweetID != nil:
		s.broadcastUpdated(ctx, *deleted.Tweet.ParentTweetID, originConn)
	}
	return nil
}

// LikeTweet likes, notifies the author and pushes the new like count
func (s *Service) LikeTweet(ctx context.Context, tweetID, userID, originConn string) (*models.Tweet, error) {
	tweet, err := s.graph.Like(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	s.notifications.Emit(ctx, notifications.LikeEvents(userID, tweet)...)
	s.dispatcher.Broadcast(realtime.EventTweetUpdated, tweet.WithoutViewer(), originConn)
	return tweet, nil
}

// UnlikeTweet removes the like. The like notification stays.
func (s *Service) UnlikeTweet(ctx context.Context, tweetID, userID, originConn string) (*models.Tweet, error) {
	tweet, err := s.graph.Unlike(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	s.dispatcher.Broadcast(realtime.EventTweetUpdated, tweet.WithoutViewer(), originConn)
	return tweet, nil
}

// Retweet creates the marker, notifies the original author, broadcasts the
// marker as a new tweet and the original's new count
func (s *Service) Retweet(ctx context.Context, tweetID, userID, originConn string) (*graph.Retweeted, error) {
	r, err := s.graph.Retweet(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	s.notifications.Emit(ctx, notifications.RetweetEvents(userID, r.Original)...)
	s.dispatcher.Broadcast(realtime.EventTweetCreated, r.Marker.WithoutViewer(), originConn)
	s.dispatcher.Broadcast(realtime.EventTweetUpdated, r.Original.WithoutViewer(), originConn)
	return r, nil
}

// UndoRetweet deletes the marker and broadcasts the original's new count
func (s *Service) UndoRetweet(ctx context.Context, tweetID, userID, originConn string) (*graph.Retweeted, error) {
	r, err := s.graph.UndoRetweet(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	if r.Marker != nil {
		s.dispatcher.Broadcast(realtime.EventTweetUpdated, RemovedTweet{ID: r.Marker.ID, Deleted: true}, originConn)
	}
	s.dispatcher.Broadcast(realtime.EventTweetUpdated, r.Original.WithoutViewer(), originConn)
	return r, nil
}

// Follow adds the edge and notifies the followed user
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if err := s.graph.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}
	s.notifications.Emit(ctx, notifications.FollowEvents(followerID, followeeID)...)
	return nil
}

// Unfollow removes the edge
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.graph.Unfollow(ctx, followerID, followeeID)
}

func (s *Service) broadcastUpdated(ctx context.Context, tweetID, originConn string) {
	tweet, err := s.graph.Tweet(ctx, tweetID, "")
	if err != nil {
		logger.Log.Debug("Skipping tweet-updated push", logger.WithTweetID(tweetID), zap.Error(err))
		return
	}
	s.dispatcher.Broadcast(realtime.EventTweetUpdated, tweet.WithoutViewer(), originConn)
}
