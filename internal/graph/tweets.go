package graph

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/chirpsocial/backend/internal/validation"
)

// NewTweet is the input to CreateTweet
type NewTweet struct {
	Content       string   `json:"content" validate:"max=280"`
	Media         []string `json:"media" validate:"max=4,dive,required,max=512"`
	ParentTweetID *string  `json:"parent_tweet_id"`
	QuotedTweetID *string  `json:"quoted_tweet_id"`
	Hashtags      []string `json:"hashtags" validate:"max=10,dive,hashtag"`
	// user ids; @handles in Content are resolved as well
	Mentions []string `json:"mentions" validate:"max=20,dive,required"`
}

// Posted is a stored tweet plus who its creation touches
type Posted struct {
	Tweet          *models.Tweet
	ParentAuthorID string
	QuotedAuthorID string
	MentionedIDs   []string
}

// CreateTweet stores an original, reply or quote tweet
func (s *Store) CreateTweet(ctx context.Context, authorID string, in NewTweet) (*Posted, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && len(in.Media) == 0 {
		return nil, errors.InvalidOperation("tweet must have content or media")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	mentioned, err := s.resolveMentions(ctx, in)
	if err != nil {
		return nil, errors.Internal("failed to resolve mentions", err)
	}
	tags := util.NormalizeTags(append(append([]string{}, in.Hashtags...), util.ExtractHashtags(in.Content)...))

	out := &Posted{MentionedIDs: mentioned}
	err = s.tx(ctx, "failed to create tweet", func(t *Store) error {
		if _, err := t.GetUser(ctx, authorID); err != nil {
			return err
		}
		if in.ParentTweetID != nil {
			parent, err := t.getTweet(ctx, *in.ParentTweetID)
			if err != nil {
				return err
			}
			if parent.IsRetweet {
				return errors.InvalidOperation("cannot reply to a retweet")
			}
			out.ParentAuthorID = parent.AuthorID
		}
		if in.QuotedTweetID != nil {
			quoted, err := t.getTweet(ctx, *in.QuotedTweetID)
			if err != nil {
				return err
			}
			if quoted.IsRetweet {
				return errors.InvalidOperation("cannot quote a retweet")
			}
			out.QuotedAuthorID = quoted.AuthorID
		}

		tweet := &models.Tweet{
			AuthorID:      authorID,
			Content:       in.Content,
			Media:         in.Media,
			ParentTweetID: in.ParentTweetID,
			QuotedTweetID: in.QuotedTweetID,
			Hashtags:      tags,
			Mentions:      mentioned,
		}
		if err := t.tweets.Create(ctx, tweet); err != nil {
			return err
		}
		for _, uid := range mentioned {
			if err := t.mentions.Add(ctx, &models.TweetMention{TweetID: tweet.ID, UserID: uid}); err != nil {
				return err
			}
		}
		for _, tag := range tags {
			if err := t.hashtags.Add(ctx, &models.TweetHashtag{TweetID: tweet.ID, Tag: tag}); err != nil {
				return err
			}
		}
		if err := t.users.AdjustCounter(ctx, authorID, repository.UserTweets, 1); err != nil {
			return err
		}
		if in.ParentTweetID != nil {
			if err := t.tweets.AdjustCounter(ctx, *in.ParentTweetID, repository.TweetReplies, 1); err != nil {
				return err
			}
		}
		out.Tweet = tweet
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Hydrate(ctx, authorID, out.Tweet); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveMentions merges explicit mention ids with @handles from the
// content. Unknown users are dropped; order of first appearance is kept.
func (s *Store) resolveMentions(ctx context.Context, in NewTweet) ([]string, error) {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(in.Mentions) > 0 {
		found, err := s.users.GetUsers(ctx, in.Mentions)
		if err != nil {
			return nil, err
		}
		for _, id := range in.Mentions {
			if _, ok := found[id]; ok {
				add(id)
			}
		}
	}

	handles := util.ExtractMentions(in.Content)
	if len(handles) > 0 {
		users, err := s.users.GetUsersByUsernames(ctx, handles)
		if err != nil {
			return nil, err
		}
		byName := make(map[string]string, len(users))
		for _, u := range users {
			byName[strings.ToLower(u.Username)] = u.ID
		}
		for _, h := range handles {
			if id, ok := byName[h]; ok {
				add(id)
			}
		}
	}
	return ids, nil
}

// Thread is a tweet with its direct replies, newest first
type Thread struct {
	Tweet   *models.Tweet   `json:"tweet"`
	Replies []*models.Tweet `json:"replies"`
}

// GetTweet loads a tweet and its replies as seen by viewerID
func (s *Store) GetTweet(ctx context.Context, tweetID, viewerID string) (*Thread, error) {
	tweet, err := s.getTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	replies, err := s.tweets.Replies(ctx, tweetID, util.MaxPageLimit)
	if err != nil {
		return nil, errors.Internal("failed to load replies", err)
	}
	if err := s.Hydrate(ctx, viewerID, append([]*models.Tweet{tweet}, replies...)...); err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []*models.Tweet{}
	}
	return &Thread{Tweet: tweet, Replies: replies}, nil
}

// Tweet loads one hydrated tweet without its replies
func (s *Store) Tweet(ctx context.Context, tweetID, viewerID string) (*models.Tweet, error) {
	tweet, err := s.getTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	return tweet, s.Hydrate(ctx, viewerID, tweet)
}

// Deleted describes what DeleteTweet removed
type Deleted struct {
	Tweet *models.Tweet
	// set when the deleted tweet was a retweet marker
	Original *models.Tweet
}

// DeleteTweet removes a tweet its author owns. Deleting a retweet marker is
// an undo of that retweet. Otherwise the cascade removes likes, retweets
// and their markers, mentions, hashtags and notifications about the tweet,
// and takes it off the parent's reply count. Replies to it are kept.
func (s *Store) DeleteTweet(ctx context.Context, tweetID, requesterID string) (*Deleted, error) {
	out := &Deleted{}
	err := s.tx(ctx, "failed to delete tweet", func(t *Store) error {
		tweet, err := t.getTweet(ctx, tweetID)
		if err != nil {
			return err
		}
		if tweet.AuthorID != requesterID {
			return errors.Forbidden("only the author can delete this tweet")
		}
		out.Tweet = tweet

		if tweet.IsRetweet {
			if _, err := t.retweets.Clear(ctx, map[string]interface{}{"marker_id": tweet.ID}); err != nil {
				return err
			}
			if err := t.tweets.Delete(ctx, tweet.ID); err != nil {
				return err
			}
			if err := t.users.AdjustCounter(ctx, requesterID, repository.UserTweets, -1); err != nil {
				return err
			}
			if tweet.OriginalTweetID == nil {
				return nil
			}
			if err := t.tweets.AdjustCounter(ctx, *tweet.OriginalTweetID, repository.TweetRetweets, -1); err != nil {
				return err
			}
			original, err := t.tweets.Get(ctx, *tweet.OriginalTweetID)
			if err != nil && !stderrors.Is(err, repository.ErrTweetNotFound) {
				return err
			}
			out.Original = original
			return nil
		}

		markers, err := t.tweets.RetweetMarkers(ctx, tweet.ID)
		if err != nil {
			return err
		}
		markerIDs := make([]string, 0, len(markers))
		for _, m := range markers {
			markerIDs = append(markerIDs, m.ID)
			if err := t.users.AdjustCounter(ctx, m.AuthorID, repository.UserTweets, -1); err != nil {
				return err
			}
		}
		if err := t.tweets.Delete(ctx, markerIDs...); err != nil {
			return err
		}

		byTweet := map[string]interface{}{"tweet_id": tweet.ID}
		if _, err := t.likes.Clear(ctx, byTweet); err != nil {
			return err
		}
		if _, err := t.retweets.Clear(ctx, byTweet); err != nil {
			return err
		}
		if _, err := t.mentions.Clear(ctx, byTweet); err != nil {
			return err
		}
		if _, err := t.hashtags.Clear(ctx, byTweet); err != nil {
			return err
		}
		if err := notifications.PurgeForTweets(ctx, t.db, []string{tweet.ID}); err != nil {
			return err
		}

		if tweet.ParentTweetID != nil {
			if err := t.tweets.AdjustCounter(ctx, *tweet.ParentTweetID, repository.TweetReplies, -1); err != nil {
				return err
			}
		}
		if err := t.users.AdjustCounter(ctx, requesterID, repository.UserTweets, -1); err != nil {
			return err
		}
		return t.tweets.Delete(ctx, tweet.ID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
