package handlers

import (
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateTweet posts an original tweet, reply or quote
// POST /api/v1/tweets
func (h *Handlers) CreateTweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req graph.NewTweet
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	tweet, err := h.social.PostTweet(c.Request.Context(), userID, req, util.GetConnectionID(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, tweet)
}

// GetTweet returns a tweet with its replies, newest first
// GET /api/v1/tweets/:id
func (h *Handlers) GetTweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	thread, err := h.graph.GetTweet(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, thread)
}

// DeleteTweet removes one of the caller's tweets
// DELETE /api/v1/tweets/:id
func (h *Handlers) DeleteTweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.social.DeleteTweet(c.Request.Context(), c.Param("id"), userID, util.GetConnectionID(c)); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"message": "tweet deleted"})
}

// LikeTweet POST /api/v1/tweets/:id/like
func (h *Handlers) LikeTweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	tweet, err := h.social.LikeTweet(c.Request.Context(), c.Param("id"), userID, util.GetConnectionID(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"liked": true, "like_count": tweet.LikeCount})
}

// UnlikeTweet POST /api/v1/tweets/:id/unlike
func (h *Handlers) UnlikeTweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	tweet, err := h.social.UnlikeTweet(c.Request.Context(), c.Param("id"), userID, util.GetConnectionID(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"liked": false, "like_count": tweet.LikeCount})
}

// Retweet POST /api/v1/tweets/:id/retweet
func (h *Handlers) Retweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	res, err := h.social.Retweet(c.Request.Context(), c.Param("id"), userID, util.GetConnectionID(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{
		"retweeted":     true,
		"retweet_id":    res.Marker.ID,
		"retweet_count": res.Original.RetweetCount,
	})
}

// UndoRetweet POST /api/v1/tweets/:id/unretweet
func (h *Handlers) UndoRetweet(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	res, err := h.social.UndoRetweet(c.Request.Context(), c.Param("id"), userID, util.GetConnectionID(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"retweeted": false, "retweet_count": res.Original.RetweetCount})
}

// GetLikers lists who liked a tweet
// GET /api/v1/tweets/:id/likes
func (h *Handlers) GetLikers(c *gin.Context) {
	users, err := h.graph.Likers(c.Request.Context(), c.Param("id"), util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"users": users})
}

// GetTimeline returns the caller's home feed
// GET /api/v1/tweets/timeline
func (h *Handlers) GetTimeline(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	feed, err := h.timeline.GetTimeline(c.Request.Context(), userID, util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, feed)
}

// GetHashtagTweets GET /api/v1/tweets/hashtag/:tag
func (h *Handlers) GetHashtagTweets(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	feed, err := h.timeline.ByHashtag(c.Request.Context(), userID, c.Param("tag"), util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, feed)
}

// GetUserTweets GET /api/v1/tweets/user/:username
func (h *Handlers) GetUserTweets(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	feed, err := h.timeline.UserTweets(c.Request.Context(), userID, c.Param("username"), util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, feed)
}
