// Package realtime names the push events the server emits and the interface
// domain code uses to emit them. The websocket hub is the production
// implementation.
package realtime

// EventType is the "type" field of a pushed message
type EventType string

const (
	EventTweetCreated    EventType = "tweet-created"
	EventTweetUpdated    EventType = "tweet-updated"
	EventNotification    EventType = "notification"
	EventMessageReceived EventType = "message-received"
	EventOnlineUsers     EventType = "online-users"
)

// Dispatcher pushes events to live connections. Delivery is best effort:
// offline users and full buffers drop the event, and callers never see an
// error.
type Dispatcher interface {
	// NotifyUser delivers to the user's current connection, if any.
	// It reports whether a connection was found.
	NotifyUser(userID string, event EventType, payload interface{}) bool
	// Broadcast delivers to every connection except excludeConnID
	Broadcast(event EventType, payload interface{}, excludeConnID string)
}

// Nop discards every event
type Nop struct{}

func (Nop) NotifyUser(string, EventType, interface{}) bool { return false }
func (Nop) Broadcast(EventType, interface{}, string)       {}
