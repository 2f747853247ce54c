// Package backend is the Chirp API server: tweets, follows, likes,
// retweets, replies, direct messages and notifications, with real-time
// delivery over a websocket.
//
// Layout:
//
//   - cmd/server: HTTP and websocket server
//   - cmd/cli: operations CLI (migrate, seed, reconcile, token)
//   - internal/graph: tweets, follows, likes and retweets with their counters
//   - internal/notifications: notification fan-out, inbox and unread counts
//   - internal/conversations: direct messages, one conversation per user pair
//   - internal/timeline: reverse-chronological feeds
//   - internal/social: one unit of work per user action (write, notify, push)
//   - internal/websocket: hub, presence registry and client pumps
//   - internal/handlers: HTTP handlers and routes
//   - internal/middleware: request ids, access log, metrics, tracing, rate limits
package backend
