package graph

import (
	"context"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
)

// Hydrate fills the read-only fields of tweets: author, the original of a
// retweet marker, the quoted tweet, and the viewer's liked/retweeted flags.
// Referenced tweets are loaded one level deep. An empty viewerID skips the
// flags.
func (s *Store) Hydrate(ctx context.Context, viewerID string, tweets ...*models.Tweet) error {
	if err := s.hydrate(ctx, viewerID, tweets); err != nil {
		return errors.Internal("failed to load tweet details", err)
	}
	return nil
}

func (s *Store) hydrate(ctx context.Context, viewerID string, tweets []*models.Tweet) error {
	var refIDs []string
	for _, t := range tweets {
		if t == nil {
			continue
		}
		if t.OriginalTweetID != nil {
			refIDs = append(refIDs, *t.OriginalTweetID)
		}
		if t.QuotedTweetID != nil {
			refIDs = append(refIDs, *t.QuotedTweetID)
		}
	}
	refs, err := s.tweets.GetMany(ctx, refIDs)
	if err != nil {
		return err
	}

	all := make([]*models.Tweet, 0, len(tweets)+len(refs))
	for _, t := range tweets {
		if t != nil {
			all = append(all, t)
		}
	}
	for _, r := range refs {
		all = append(all, r)
	}
	if len(all) == 0 {
		return nil
	}

	authorIDs := make([]string, 0, len(all))
	tweetIDs := make([]string, 0, len(all))
	for _, t := range all {
		authorIDs = append(authorIDs, t.AuthorID)
		tweetIDs = append(tweetIDs, t.ID)
	}
	authors, err := s.users.GetUsers(ctx, authorIDs)
	if err != nil {
		return err
	}

	liked := map[string]bool{}
	retweeted := map[string]bool{}
	if viewerID != "" {
		where := map[string]interface{}{"user_id": viewerID, "tweet_id": tweetIDs}
		ids, err := s.likes.Pluck(ctx, "tweet_id", where)
		if err != nil {
			return err
		}
		for _, id := range ids {
			liked[id] = true
		}
		ids, err = s.retweets.Pluck(ctx, "tweet_id", where)
		if err != nil {
			return err
		}
		for _, id := range ids {
			retweeted[id] = true
		}
	}

	for _, t := range all {
		t.Author = authors[t.AuthorID].Public()
		t.Liked = liked[t.ID]
		t.Retweeted = retweeted[t.ID]
	}
	for _, t := range tweets {
		if t == nil {
			continue
		}
		if t.OriginalTweetID != nil {
			t.Original = refs[*t.OriginalTweetID]
			if t.Original != nil {
				// a marker shows the viewer's state of the original
				t.Liked = t.Original.Liked
				t.Retweeted = t.Original.Retweeted
			}
		}
		if t.QuotedTweetID != nil {
			t.Quoted = refs[*t.QuotedTweetID]
		}
	}
	return nil
}
