package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDIsSymmetric(t *testing.T) {
	assert.Equal(t, ConversationID("alice", "bob"), ConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", ConversationID("bob", "alice"))
}

func TestNotificationDedupeKey(t *testing.T) {
	tweet := "t1"
	assert.Equal(t, "like:a:b:t1", NotificationDedupeKey(NotificationLike, "a", "b", &tweet))
	assert.Equal(t, "follow:a:b:", NotificationDedupeKey(NotificationFollow, "a", "b", nil))
}

func TestStringArrayRoundTrip(t *testing.T) {
	refs := StringArray{
		"https://cdn.example.com/img/w_400,h_300/cat.png",
		`media/{odd} "quoted"`,
	}
	v, err := refs.Value()
	require.NoError(t, err)

	var back StringArray
	require.NoError(t, back.Scan(v))
	assert.Equal(t, refs, back)

	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, refs, back)
}

func TestStringArrayEmpty(t *testing.T) {
	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var a StringArray
	require.NoError(t, a.Scan("[]"))
	assert.Equal(t, StringArray{}, a)

	require.NoError(t, a.Scan(nil))
	assert.Nil(t, a)

	assert.Error(t, a.Scan("{x,y}"))
	assert.Error(t, a.Scan(42))
}

func TestTweetWithoutViewer(t *testing.T) {
	original := &Tweet{ID: "o", Liked: true, Retweeted: true}
	marker := &Tweet{ID: "m", IsRetweet: true, Retweeted: true, Original: original}

	shared := marker.WithoutViewer()
	assert.False(t, shared.Retweeted)
	assert.False(t, shared.Original.Liked)
	assert.False(t, shared.Original.Retweeted)

	assert.True(t, marker.Retweeted)
	assert.True(t, original.Liked)
	assert.Nil(t, (*Tweet)(nil).WithoutViewer())
}
