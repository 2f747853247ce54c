package graph

import (
	"context"
	stderrors "errors"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/google/uuid"
)

// likeable loads a tweet that can take likes and retweets
func (s *Store) likeable(ctx context.Context, tweetID string) (*models.Tweet, error) {
	tweet, err := s.getTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet.IsRetweet {
		return nil, errors.InvalidOperation("act on the original tweet, not the retweet")
	}
	return tweet, nil
}

// Like adds userID to the tweet's likes. ALREADY_DONE if present.
func (s *Store) Like(ctx context.Context, tweetID, userID string) (*models.Tweet, error) {
	var out *models.Tweet
	err := s.tx(ctx, "failed to like tweet", func(t *Store) error {
		if _, err := t.likeable(ctx, tweetID); err != nil {
			return err
		}
		err := t.likes.Add(ctx, &models.TweetLike{TweetID: tweetID, UserID: userID})
		if stderrors.Is(err, repository.ErrAlreadyMember) {
			return errors.AlreadyDone("tweet already liked")
		}
		if err != nil {
			return err
		}
		if err := t.tweets.AdjustCounter(ctx, tweetID, repository.TweetLikes, 1); err != nil {
			return err
		}
		out, err = t.tweets.Get(ctx, tweetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, s.Hydrate(ctx, userID, out)
}

// Unlike removes userID from the tweet's likes. NOT_DONE if absent.
func (s *Store) Unlike(ctx context.Context, tweetID, userID string) (*models.Tweet, error) {
	var out *models.Tweet
	err := s.tx(ctx, "failed to unlike tweet", func(t *Store) error {
		if _, err := t.likeable(ctx, tweetID); err != nil {
			return err
		}
		err := t.likes.Remove(ctx, map[string]interface{}{"tweet_id": tweetID, "user_id": userID})
		if stderrors.Is(err, repository.ErrNotMember) {
			return errors.NotDone("tweet not liked")
		}
		if err != nil {
			return err
		}
		if err := t.tweets.AdjustCounter(ctx, tweetID, repository.TweetLikes, -1); err != nil {
			return err
		}
		out, err = t.tweets.Get(ctx, tweetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, s.Hydrate(ctx, userID, out)
}

// Retweeted is the result of Retweet
type Retweeted struct {
	Marker   *models.Tweet
	Original *models.Tweet
}

// Retweet adds userID to the tweet's retweets and creates the marker tweet
// that shows it in the user's feed. ALREADY_DONE if already retweeted.
func (s *Store) Retweet(ctx context.Context, tweetID, userID string) (*Retweeted, error) {
	out := &Retweeted{}
	err := s.tx(ctx, "failed to retweet", func(t *Store) error {
		if _, err := t.likeable(ctx, tweetID); err != nil {
			return err
		}
		markerID := uuid.NewString()
		err := t.retweets.Add(ctx, &models.TweetRetweet{TweetID: tweetID, UserID: userID, MarkerID: markerID})
		if stderrors.Is(err, repository.ErrAlreadyMember) {
			return errors.AlreadyDone("tweet already retweeted")
		}
		if err != nil {
			return err
		}
		marker := &models.Tweet{
			ID:              markerID,
			AuthorID:        userID,
			IsRetweet:       true,
			OriginalTweetID: &tweetID,
		}
		if err := t.tweets.Create(ctx, marker); err != nil {
			return err
		}
		if err := t.tweets.AdjustCounter(ctx, tweetID, repository.TweetRetweets, 1); err != nil {
			return err
		}
		if err := t.users.AdjustCounter(ctx, userID, repository.UserTweets, 1); err != nil {
			return err
		}
		out.Marker = marker
		out.Original, err = t.tweets.Get(ctx, tweetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, s.Hydrate(ctx, userID, out.Marker, out.Original)
}

// UndoRetweet removes userID from the tweet's retweets and deletes the
// marker. NOT_DONE if the user never retweeted it.
func (s *Store) UndoRetweet(ctx context.Context, tweetID, userID string) (*Retweeted, error) {
	out := &Retweeted{}
	err := s.tx(ctx, "failed to undo retweet", func(t *Store) error {
		if _, err := t.likeable(ctx, tweetID); err != nil {
			return err
		}
		edge := map[string]interface{}{"tweet_id": tweetID, "user_id": userID}
		rows, err := t.retweets.Find(ctx, edge)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errors.NotDone("tweet not retweeted")
		}
		if err := t.retweets.Remove(ctx, edge); err != nil {
			return err
		}
		out.Marker = &models.Tweet{ID: rows[0].MarkerID, AuthorID: userID, IsRetweet: true, OriginalTweetID: &tweetID}
		if err := t.tweets.Delete(ctx, rows[0].MarkerID); err != nil {
			return err
		}
		if err := t.tweets.AdjustCounter(ctx, tweetID, repository.TweetRetweets, -1); err != nil {
			return err
		}
		if err := t.users.AdjustCounter(ctx, userID, repository.UserTweets, -1); err != nil {
			return err
		}
		out.Original, err = t.tweets.Get(ctx, tweetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, s.Hydrate(ctx, userID, out.Original)
}

// Likers lists the users who liked a tweet, most recent first
func (s *Store) Likers(ctx context.Context, tweetID string, page util.Page) ([]*models.PublicUser, error) {
	if _, err := s.getTweet(ctx, tweetID); err != nil {
		return nil, err
	}
	var users []*models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN tweet_likes ON tweet_likes.user_id = users.id").
		Where("tweet_likes.tweet_id = ?", tweetID).
		Order("tweet_likes.created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, errors.Internal("failed to load likers", err)
	}
	return publicUsers(users), nil
}

func publicUsers(users []*models.User) []*models.PublicUser {
	out := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
