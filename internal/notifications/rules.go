package notifications

import "github.com/chirpsocial/backend/internal/models"

// Event is a candidate notification derived from a graph mutation
type Event struct {
	Type        models.NotificationType
	ActorID     string
	RecipientID string
	TweetID     *string
}

func (e Event) selfInflicted() bool {
	return e.ActorID == e.RecipientID
}

// LikeEvents notifies the tweet's author
func LikeEvents(actorID string, tweet *models.Tweet) []Event {
	return []Event{{Type: models.NotificationLike, ActorID: actorID, RecipientID: tweet.AuthorID, TweetID: &tweet.ID}}
}

// RetweetEvents notifies the original tweet's author
func RetweetEvents(actorID string, original *models.Tweet) []Event {
	return []Event{{Type: models.NotificationRetweet, ActorID: actorID, RecipientID: original.AuthorID, TweetID: &original.ID}}
}

// FollowEvents notifies the followed user
func FollowEvents(actorID, followeeID string) []Event {
	return []Event{{Type: models.NotificationFollow, ActorID: actorID, RecipientID: followeeID}}
}

// PostEvents covers a new tweet: one reply notification for the parent's
// author, one quote notification for the quoted author and one mention per
// distinct mentioned user. Each rule stands alone, so a reply that also
// mentions the parent's author produces both a reply and a mention.
func PostEvents(actorID string, tweet *models.Tweet, parentAuthorID, quotedAuthorID string, mentionedIDs []string) []Event {
	var events []Event
	if parentAuthorID != "" {
		events = append(events, Event{Type: models.NotificationReply, ActorID: actorID, RecipientID: parentAuthorID, TweetID: &tweet.ID})
	}
	if quotedAuthorID != "" {
		events = append(events, Event{Type: models.NotificationQuote, ActorID: actorID, RecipientID: quotedAuthorID, TweetID: &tweet.ID})
	}
	seen := make(map[string]bool, len(mentionedIDs))
	for _, id := range mentionedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		events = append(events, Event{Type: models.NotificationMention, ActorID: actorID, RecipientID: id, TweetID: &tweet.ID})
	}
	return events
}
