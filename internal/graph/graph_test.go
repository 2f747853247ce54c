package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/chirpsocial/backend/internal/database/dbtest"
	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type GraphTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	store *Store
	alice *models.User
	bob   *models.User
}

func (s *GraphTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.Open(s.T())
	s.store = NewStore(s.db)
	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
}

func (s *GraphTestSuite) createUser(username string) *models.User {
	u := &models.User{Username: username}
	require.NoError(s.T(), s.db.Create(u).Error)
	return u
}

func (s *GraphTestSuite) reloadUser(id string) *models.User {
	u, err := s.store.GetUser(s.ctx, id)
	require.NoError(s.T(), err)
	return u
}

func (s *GraphTestSuite) reloadTweet(id string) *models.Tweet {
	var t models.Tweet
	require.NoError(s.T(), s.db.First(&t, "id = ?", id).Error)
	return &t
}

func (s *GraphTestSuite) post(author *models.User, in NewTweet) *models.Tweet {
	p, err := s.store.CreateTweet(s.ctx, author.ID, in)
	require.NoError(s.T(), err)
	return p.Tweet
}

func (s *GraphTestSuite) TestCreateTweet() {
	p, err := s.store.CreateTweet(s.ctx, s.alice.ID, NewTweet{Content: "  hello #World @bob  "})
	s.Require().NoError(err)

	s.Equal("hello #World @bob", p.Tweet.Content)
	s.Equal(models.StringArray{"world"}, p.Tweet.Hashtags)
	s.Equal([]string{s.bob.ID}, p.MentionedIDs)
	s.Equal("alice", p.Tweet.Author.Username)
	s.Equal(1, s.reloadUser(s.alice.ID).TweetCount)
}

func (s *GraphTestSuite) TestMediaRefsSurviveStorage() {
	refs := []string{"https://cdn.example.com/img/w_400,h_300/cat.png", "s3://bucket/{id}.mp4"}
	tweet := s.post(s.alice, NewTweet{Media: refs})

	s.Equal(models.StringArray(refs), s.reloadTweet(tweet.ID).Media)
}

func (s *GraphTestSuite) TestCreateTweetValidation() {
	_, err := s.store.CreateTweet(s.ctx, s.alice.ID, NewTweet{Content: "   "})
	s.Equal(errors.ErrInvalidOperation, errors.CodeOf(err))

	_, err = s.store.CreateTweet(s.ctx, s.alice.ID, NewTweet{Content: strings.Repeat("é", 281)})
	s.Equal(errors.ErrInvalidOperation, errors.CodeOf(err))

	_, err = s.store.CreateTweet(s.ctx, s.alice.ID, NewTweet{Content: strings.Repeat("é", 280)})
	s.NoError(err)

	_, err = s.store.CreateTweet(s.ctx, s.alice.ID, NewTweet{Media: []string{"media/1.png"}})
	s.NoError(err)

	missing := "missing"
	_, err = s.store.CreateTweet(s.ctx, s.alice.ID, NewTweet{Content: "reply", ParentTweetID: &missing})
	s.Equal(errors.ErrNotFound, errors.CodeOf(err))
}

func (s *GraphTestSuite) TestLikeUnlikeRoundTrip() {
	tweet := s.post(s.alice, NewTweet{Content: "like me"})

	liked, err := s.store.Like(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(1, liked.LikeCount)
	s.True(liked.Liked)

	unliked, err := s.store.Unlike(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(0, unliked.LikeCount)
	s.False(unliked.Liked)

	var rows int64
	s.db.Model(&models.TweetLike{}).Where("tweet_id = ?", tweet.ID).Count(&rows)
	s.Zero(rows)
}

func (s *GraphTestSuite) TestDoubleLikeIsAlreadyDone() {
	tweet := s.post(s.alice, NewTweet{Content: "like me"})

	_, err := s.store.Like(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.store.Like(s.ctx, tweet.ID, s.bob.ID)
	s.Equal(errors.ErrAlreadyDone, errors.CodeOf(err))

	s.Equal(1, s.reloadTweet(tweet.ID).LikeCount)

	_, err = s.store.Unlike(s.ctx, tweet.ID, s.alice.ID)
	s.Equal(errors.ErrNotDone, errors.CodeOf(err))
}

func (s *GraphTestSuite) TestFollowUnfollowSymmetry() {
	s.Require().NoError(s.store.Follow(s.ctx, s.alice.ID, s.bob.ID))

	followers, err := s.store.Followers(s.ctx, s.bob.ID, util.NewPage(1, 10))
	s.Require().NoError(err)
	s.Require().Len(followers.Users, 1)
	s.Equal(s.alice.ID, followers.Users[0].ID)

	following, err := s.store.Following(s.ctx, s.alice.ID, util.NewPage(1, 10))
	s.Require().NoError(err)
	s.Require().Len(following.Users, 1)
	s.Equal(s.bob.ID, following.Users[0].ID)

	s.Equal(1, s.reloadUser(s.bob.ID).FollowerCount)
	s.Equal(1, s.reloadUser(s.alice.ID).FollowingCount)

	s.Equal(errors.ErrAlreadyDone, errors.CodeOf(s.store.Follow(s.ctx, s.alice.ID, s.bob.ID)))

	s.Require().NoError(s.store.Unfollow(s.ctx, s.alice.ID, s.bob.ID))
	s.Equal(0, s.reloadUser(s.bob.ID).FollowerCount)
	s.Equal(0, s.reloadUser(s.alice.ID).FollowingCount)

	ok, err := s.store.IsFollowing(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(ok)

	s.Equal(errors.ErrNotDone, errors.CodeOf(s.store.Unfollow(s.ctx, s.alice.ID, s.bob.ID)))
}

func (s *GraphTestSuite) TestFollowEdgeCases() {
	s.Equal(errors.ErrInvalidOperation, errors.CodeOf(s.store.Follow(s.ctx, s.alice.ID, s.alice.ID)))
	s.Equal(errors.ErrNotFound, errors.CodeOf(s.store.Follow(s.ctx, s.alice.ID, "nobody")))
}

func (s *GraphTestSuite) TestRetweetAndUndo() {
	tweet := s.post(s.alice, NewTweet{Content: "share me"})

	rt, err := s.store.Retweet(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(rt.Marker.IsRetweet)
	s.Empty(rt.Marker.Content)
	s.Equal(tweet.ID, *rt.Marker.OriginalTweetID)
	s.Equal(1, rt.Original.RetweetCount)
	s.True(rt.Original.Retweeted)
	s.Equal(1, s.reloadUser(s.bob.ID).TweetCount)

	_, err = s.store.Retweet(s.ctx, tweet.ID, s.bob.ID)
	s.Equal(errors.ErrAlreadyDone, errors.CodeOf(err))

	_, err = s.store.Like(s.ctx, rt.Marker.ID, s.alice.ID)
	s.Equal(errors.ErrInvalidOperation, errors.CodeOf(err))

	undone, err := s.store.UndoRetweet(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(0, undone.Original.RetweetCount)
	s.Equal(0, s.reloadUser(s.bob.ID).TweetCount)

	var markers int64
	s.db.Model(&models.Tweet{}).Where("is_retweet = ?", true).Count(&markers)
	s.Zero(markers)

	_, err = s.store.UndoRetweet(s.ctx, tweet.ID, s.bob.ID)
	s.Equal(errors.ErrNotDone, errors.CodeOf(err))
}

func (s *GraphTestSuite) TestDeleteMarkerUndoesRetweet() {
	tweet := s.post(s.alice, NewTweet{Content: "share me"})
	rt, err := s.store.Retweet(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)

	_, err = s.store.DeleteTweet(s.ctx, rt.Marker.ID, s.alice.ID)
	s.Equal(errors.ErrForbidden, errors.CodeOf(err))

	deleted, err := s.store.DeleteTweet(s.ctx, rt.Marker.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Require().NotNil(deleted.Original)
	s.Equal(0, deleted.Original.RetweetCount)

	// can retweet again after the undo
	_, err = s.store.Retweet(s.ctx, tweet.ID, s.bob.ID)
	s.NoError(err)
}

func (s *GraphTestSuite) TestDeleteTweetWithReplies() {
	carol := s.createUser("carol")
	root := s.post(s.alice, NewTweet{Content: "root"})

	var replies []*models.Tweet
	for i, u := range []*models.User{s.bob, carol, s.bob} {
		replies = append(replies, s.post(u, NewTweet{Content: fmt.Sprintf("reply %d", i), ParentTweetID: &root.ID}))
	}
	s.Equal(3, s.reloadTweet(root.ID).ReplyCount)

	_, err := s.store.Like(s.ctx, root.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.store.Retweet(s.ctx, root.ID, carol.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Create(&models.Notification{
		RecipientID: s.alice.ID, SenderID: s.bob.ID, Type: models.NotificationLike, TweetID: &root.ID,
	}).Error)
	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", s.alice.ID).
		Update("unread_notifications", 1).Error)

	_, err = s.store.DeleteTweet(s.ctx, root.ID, s.bob.ID)
	s.Equal(errors.ErrForbidden, errors.CodeOf(err))

	_, err = s.store.DeleteTweet(s.ctx, root.ID, s.alice.ID)
	s.Require().NoError(err)

	_, err = s.store.GetTweet(s.ctx, root.ID, "")
	s.Equal(errors.ErrNotFound, errors.CodeOf(err))

	for _, r := range replies {
		got := s.reloadTweet(r.ID)
		s.Equal(root.ID, *got.ParentTweetID)
	}

	alice := s.reloadUser(s.alice.ID)
	s.Equal(0, alice.TweetCount)
	s.Equal(0, alice.UnreadNotifications)
	s.Equal(1, s.reloadUser(carol.ID).TweetCount, "carol keeps her reply, loses her retweet marker")

	var n int64
	s.db.Model(&models.Notification{}).Where("tweet_id = ?", root.ID).Count(&n)
	s.Zero(n)
	s.db.Model(&models.TweetLike{}).Where("tweet_id = ?", root.ID).Count(&n)
	s.Zero(n)
	s.db.Model(&models.Tweet{}).Where("original_tweet_id = ?", root.ID).Count(&n)
	s.Zero(n)
}

func (s *GraphTestSuite) TestDeleteReplyDecrementsParent() {
	root := s.post(s.alice, NewTweet{Content: "root"})
	reply := s.post(s.bob, NewTweet{Content: "reply", ParentTweetID: &root.ID})

	_, err := s.store.DeleteTweet(s.ctx, reply.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(0, s.reloadTweet(root.ID).ReplyCount)
}

func (s *GraphTestSuite) TestGetTweetHydratesThread() {
	root := s.post(s.alice, NewTweet{Content: "root"})
	first := s.post(s.bob, NewTweet{Content: "first", ParentTweetID: &root.ID})
	second := s.post(s.bob, NewTweet{Content: "second", ParentTweetID: &root.ID})
	quote := s.post(s.bob, NewTweet{Content: "quoting", QuotedTweetID: &root.ID})

	_, err := s.store.Like(s.ctx, root.ID, s.bob.ID)
	s.Require().NoError(err)

	thread, err := s.store.GetTweet(s.ctx, root.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(thread.Tweet.Liked)
	s.Equal("alice", thread.Tweet.Author.Username)
	s.Require().Len(thread.Replies, 2)
	s.Equal(second.ID, thread.Replies[0].ID)
	s.Equal(first.ID, thread.Replies[1].ID)

	q, err := s.store.GetTweet(s.ctx, quote.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Require().NotNil(q.Tweet.Quoted)
	s.Equal(root.ID, q.Tweet.Quoted.ID)
}

func (s *GraphTestSuite) TestLikersAndProfile() {
	tweet := s.post(s.alice, NewTweet{Content: "like me"})
	_, err := s.store.Like(s.ctx, tweet.ID, s.bob.ID)
	s.Require().NoError(err)

	likers, err := s.store.Likers(s.ctx, tweet.ID, util.NewPage(1, 10))
	s.Require().NoError(err)
	s.Require().Len(likers, 1)
	s.Equal(s.bob.ID, likers[0].ID)

	s.Require().NoError(s.store.Follow(s.ctx, s.bob.ID, s.alice.ID))
	profile, err := s.store.GetProfile(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(profile.IsFollowing)
	s.Equal(1, profile.FollowerCount)
}

func TestGraphSuite(t *testing.T) {
	suite.Run(t, new(GraphTestSuite))
}

func TestConcurrentDistinctLikesCommute(t *testing.T) {
	db := dbtest.Open(t)
	store := NewStore(db)
	ctx := context.Background()

	author := &models.User{Username: "author"}
	require.NoError(t, db.Create(author).Error)
	p, err := store.CreateTweet(ctx, author.ID, NewTweet{Content: "popular"})
	require.NoError(t, err)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		u := &models.User{Username: fmt.Sprintf("fan%d", i)}
		require.NoError(t, db.Create(u).Error)
		go func(id string) {
			_, err := store.Like(ctx, p.Tweet.ID, id)
			errs <- err
		}(u.ID)
	}
	for i := 0; i < n; i++ {
		assert.NoError(t, <-errs)
	}

	var tweet models.Tweet
	require.NoError(t, db.First(&tweet, "id = ?", p.Tweet.ID).Error)
	assert.Equal(t, n, tweet.LikeCount)
}
