package handlers

import (
	"github.com/chirpsocial/backend/internal/auth"
	"github.com/chirpsocial/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts the API. writeLimit runs after authentication so it
// can key on the user; pass nil to disable it.
func (h *Handlers) SetupRoutes(r *gin.Engine, verifier auth.TokenVerifier, writeLimit gin.HandlerFunc) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/v1")

	authed := []gin.HandlerFunc{auth.Middleware(verifier), middleware.TraceUser()}
	if writeLimit != nil {
		authed = append(authed, writeLimit)
	}

	tweets := api.Group("/tweets", authed...)
	{
		tweets.POST("", h.CreateTweet)
		tweets.GET("/timeline", h.GetTimeline)
		tweets.GET("/hashtag/:tag", h.GetHashtagTweets)
		tweets.GET("/user/:username", h.GetUserTweets)
		tweets.GET("/:id", h.GetTweet)
		tweets.DELETE("/:id", h.DeleteTweet)
		tweets.GET("/:id/likes", h.GetLikers)
		tweets.POST("/:id/like", h.LikeTweet)
		tweets.POST("/:id/unlike", h.UnlikeTweet)
		tweets.POST("/:id/retweet", h.Retweet)
		tweets.POST("/:id/unretweet", h.UndoRetweet)
	}

	users := api.Group("/users", authed...)
	{
		users.GET("/me", h.GetMe)
		users.GET("/:id", h.GetUserProfile)
		users.GET("/:id/followers", h.GetFollowers)
		users.GET("/:id/following", h.GetFollowing)
		users.POST("/:id/follow", h.FollowUser)
		users.POST("/:id/unfollow", h.UnfollowUser)
	}

	notifications := api.Group("/notifications", authed...)
	{
		notifications.GET("", h.GetNotifications)
		notifications.PUT("/read-all", h.MarkAllNotificationsRead)
		notifications.PUT("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/:id", h.DeleteNotification)
		notifications.DELETE("", h.DeleteAllNotifications)
	}

	messages := api.Group("/messages", authed...)
	{
		messages.POST("", h.SendMessage)
		messages.GET("/conversations", h.GetConversations)
		messages.GET("/conversation/:userId", h.GetConversation)
		messages.GET("/unread", h.GetUnreadMessageCount)
		messages.DELETE("/:id", h.DeleteMessage)
	}

	if h.wsHandler != nil {
		// the websocket authenticates from ?token= itself
		api.GET("/ws", h.wsHandler.HandleWebSocket)
		api.GET("/presence/online", auth.Middleware(verifier), h.wsHandler.HandleOnlineUsers)
	}
}
