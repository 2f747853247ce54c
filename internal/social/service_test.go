package social

import (
	"context"
	"testing"

	"github.com/chirpsocial/backend/internal/database/dbtest"
	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/chirpsocial/backend/internal/timeline"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type SocialSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	store    *graph.Store
	engine   *notifications.Engine
	recorder *realtime.Recorder
	svc      *Service
	alice    *models.User
	bob      *models.User
}

func TestSocialSuite(t *testing.T) {
	suite.Run(t, new(SocialSuite))
}

func (s *SocialSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.Open(s.T())
	s.alice = &models.User{Username: "alice"}
	s.bob = &models.User{Username: "bob"}
	s.Require().NoError(s.db.Create(s.alice).Error)
	s.Require().NoError(s.db.Create(s.bob).Error)

	s.recorder = realtime.NewRecorder(s.alice.ID, s.bob.ID)
	s.store = graph.NewStore(s.db)
	s.engine = notifications.NewEngine(s.db, s.recorder)
	s.svc = NewService(s.store, s.engine, s.recorder)
}

func (s *SocialSuite) notificationsFor(userID string, typ models.NotificationType) int64 {
	var n int64
	s.db.Model(&models.Notification{}).Where("recipient_id = ? AND type = ?", userID, typ).Count(&n)
	return n
}

func (s *SocialSuite) unread(userID string) int {
	count, err := s.engine.UnreadCount(s.ctx, userID)
	s.Require().NoError(err)
	return count
}

func (s *SocialSuite) TestAliceBobScenario() {
	feeds := timeline.NewService(s.db, s.store)

	tweet, err := s.svc.PostTweet(s.ctx, s.alice.ID, graph.NewTweet{Content: "hello #test"}, "conn-alice")
	s.Require().NoError(err)
	s.Equal(models.StringArray{"test"}, tweet.Hashtags)

	created := s.recorder.Of(realtime.EventTweetCreated)
	s.Require().Len(created, 1)
	s.Equal("conn-alice", created[0].Exclude)

	s.Require().NoError(s.svc.Follow(s.ctx, s.bob.ID, s.alice.ID))

	feed, err := feeds.GetTimeline(s.ctx, s.bob.ID, util.NewPage(1, 20))
	s.Require().NoError(err)
	s.Require().Len(feed.Tweets, 1)
	s.Equal(tweet.ID, feed.Tweets[0].ID)

	tagged, err := feeds.ByHashtag(s.ctx, s.bob.ID, "test", util.NewPage(1, 20))
	s.Require().NoError(err)
	s.Require().Len(tagged.Tweets, 1)
	s.Equal(tweet.ID, tagged.Tweets[0].ID)

	liked, err := s.svc.LikeTweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Require().NoError(err)
	s.Equal(1, liked.LikeCount)
	s.True(liked.Liked)

	// the earlier follow notified alice too
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationFollow))
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationLike))
	s.Equal(2, s.unread(s.alice.ID))

	pushed := s.recorder.Of(realtime.EventNotification)
	s.Require().Len(pushed, 2)
	last, ok := pushed[1].Payload.(*models.Notification)
	s.Require().True(ok)
	s.Equal(models.NotificationLike, last.Type)
	s.Equal(s.alice.ID, pushed[1].UserID)

	flipped, err := s.engine.MarkAllRead(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.EqualValues(2, flipped)
	s.Equal(0, s.unread(s.alice.ID))
}

func (s *SocialSuite) TestReplyNotifiesParentAuthorOnly() {
	parent, err := s.svc.PostTweet(s.ctx, s.alice.ID, graph.NewTweet{Content: "thoughts?"}, "")
	s.Require().NoError(err)

	_, err = s.svc.PostTweet(s.ctx, s.bob.ID, graph.NewTweet{
		Content:       "@bob @alice agreed",
		ParentTweetID: &parent.ID,
		Mentions:      []string{s.bob.ID},
	}, "")
	s.Require().NoError(err)

	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationReply))
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationMention))
	var bobs int64
	s.db.Model(&models.Notification{}).Where("recipient_id = ?", s.bob.ID).Count(&bobs)
	s.Zero(bobs)
	s.Equal(2, s.unread(s.alice.ID))
	s.Equal(0, s.unread(s.bob.ID))

	// the parent's new reply count goes out as an update
	updates := s.recorder.Of(realtime.EventTweetUpdated)
	s.Require().Len(updates, 1)
	updated, ok := updates[0].Payload.(*models.Tweet)
	s.Require().True(ok)
	s.Equal(parent.ID, updated.ID)
	s.Equal(1, updated.ReplyCount)
}

func (s *SocialSuite) TestQuoteNotifiesQuotedAuthor() {
	original, err := s.svc.PostTweet(s.ctx, s.alice.ID, graph.NewTweet{Content: "quotable"}, "")
	s.Require().NoError(err)
	_, err = s.svc.PostTweet(s.ctx, s.bob.ID, graph.NewTweet{Content: "this", QuotedTweetID: &original.ID}, "")
	s.Require().NoError(err)
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationQuote))
}

func (s *SocialSuite) TestRetweetRoundTrip() {
	tweet, err := s.svc.PostTweet(s.ctx, s.alice.ID, graph.NewTweet{Content: "share me"}, "")
	s.Require().NoError(err)

	r, err := s.svc.Retweet(s.ctx, tweet.ID, s.bob.ID, "conn-bob")
	s.Require().NoError(err)
	s.Equal(1, r.Original.RetweetCount)
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationRetweet))

	_, err = s.svc.Retweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Equal(errors.ErrAlreadyDone, errors.CodeOf(err))

	undone, err := s.svc.UndoRetweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Require().NoError(err)
	s.Equal(0, undone.Original.RetweetCount)

	_, err = s.svc.UndoRetweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Equal(errors.ErrNotDone, errors.CodeOf(err))

	// retweeting again finds the old notification and does not re-notify
	_, err = s.svc.Retweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Require().NoError(err)
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationRetweet))
	s.Equal(1, s.unread(s.alice.ID))
}

func (s *SocialSuite) TestBroadcastsCarryNoViewerFlags() {
	tweet, err := s.svc.PostTweet(s.ctx, s.alice.ID, graph.NewTweet{Content: "flags"}, "")
	s.Require().NoError(err)

	liked, err := s.svc.LikeTweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Require().NoError(err)
	s.True(liked.Liked, "the actor's own response keeps its flag")

	_, err = s.svc.Retweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Require().NoError(err)

	for _, ev := range s.recorder.Events() {
		if !ev.Broadcast {
			continue
		}
		if t, ok := ev.Payload.(*models.Tweet); ok {
			s.False(t.Liked, "%s payload for %s", ev.Event, t.ID)
			s.False(t.Retweeted, "%s payload for %s", ev.Event, t.ID)
			if t.Original != nil {
				s.False(t.Original.Liked)
				s.False(t.Original.Retweeted)
			}
		}
	}
}

func (s *SocialSuite) TestFollowNotifies() {
	s.Require().NoError(s.svc.Follow(s.ctx, s.bob.ID, s.alice.ID))
	s.EqualValues(1, s.notificationsFor(s.alice.ID, models.NotificationFollow))

	s.Equal(errors.ErrAlreadyDone, errors.CodeOf(s.svc.Follow(s.ctx, s.bob.ID, s.alice.ID)))
	s.Equal(errors.ErrInvalidOperation, errors.CodeOf(s.svc.Follow(s.ctx, s.bob.ID, s.bob.ID)))

	s.Require().NoError(s.svc.Unfollow(s.ctx, s.bob.ID, s.alice.ID))
	s.Equal(errors.ErrNotDone, errors.CodeOf(s.svc.Unfollow(s.ctx, s.bob.ID, s.alice.ID)))
}

func (s *SocialSuite) TestDeleteTweetPurgesNotifications() {
	tweet, err := s.svc.PostTweet(s.ctx, s.alice.ID, graph.NewTweet{Content: "short lived"}, "")
	s.Require().NoError(err)
	_, err = s.svc.LikeTweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Require().NoError(err)
	s.Require().Equal(1, s.unread(s.alice.ID))

	err = s.svc.DeleteTweet(s.ctx, tweet.ID, s.bob.ID, "")
	s.Equal(errors.ErrForbidden, errors.CodeOf(err))

	s.Require().NoError(s.svc.DeleteTweet(s.ctx, tweet.ID, s.alice.ID, "conn-alice"))
	s.Equal(0, s.unread(s.alice.ID))
	s.Zero(s.notificationsFor(s.alice.ID, models.NotificationLike))

	updates := s.recorder.Of(realtime.EventTweetUpdated)
	last := updates[len(updates)-1]
	s.Equal(RemovedTweet{ID: tweet.ID, Deleted: true}, last.Payload)
	s.Equal("conn-alice", last.Exclude)
}
