package reconcile

import (
	"context"
	"testing"

	"github.com/chirpsocial/backend/internal/database/dbtest"
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepairsDrift(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)

	alice := &models.User{Username: "alice"}
	bob := &models.User{Username: "bob"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	store := graph.NewStore(db)
	engine := notifications.NewEngine(db, realtime.Nop{})
	posted, err := store.CreateTweet(ctx, alice.ID, graph.NewTweet{Content: "hello"})
	require.NoError(t, err)
	tweet, err := store.Like(ctx, posted.Tweet.ID, bob.ID)
	require.NoError(t, err)
	engine.Emit(ctx, notifications.LikeEvents(bob.ID, tweet)...)
	require.NoError(t, store.Follow(ctx, bob.ID, alice.ID))

	// consistent state: nothing to do
	report, err := Run(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, report.Total())

	// corrupt the caches behind the service's back
	require.NoError(t, db.Exec("UPDATE users SET follower_count = 7, unread_notifications = 0 WHERE id = ?", alice.ID).Error)
	require.NoError(t, db.Exec("UPDATE tweets SET like_count = 0, reply_count = 3 WHERE id = ?", tweet.ID).Error)

	report, err = Run(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report["users.follower_count"])
	assert.EqualValues(t, 1, report["users.unread_notifications"])
	assert.EqualValues(t, 1, report["tweets.like_count"])
	assert.EqualValues(t, 1, report["tweets.reply_count"])
	assert.EqualValues(t, 4, report.Total())

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", alice.ID).Error)
	assert.Equal(t, 1, got.FollowerCount)
	assert.Equal(t, 1, got.UnreadNotifications)
	assert.Equal(t, 1, got.TweetCount)

	var gotTweet models.Tweet
	require.NoError(t, db.First(&gotTweet, "id = ?", tweet.ID).Error)
	assert.Equal(t, 1, gotTweet.LikeCount)
	assert.Equal(t, 0, gotTweet.ReplyCount)
}

func TestCountPlaceholders(t *testing.T) {
	assert.Equal(t, 0, countPlaceholders(userCounters[0].source))
	assert.Equal(t, 1, countPlaceholders(userCounters[3].source))
}
