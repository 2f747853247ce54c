package handlers

import (
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// FollowUser POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.social.Follow(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"following": true})
}

// UnfollowUser POST /api/v1/users/:id/unfollow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.social.Unfollow(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"following": false})
}

// GetFollowers GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	page, err := h.graph.Followers(c.Request.Context(), c.Param("id"), util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, page)
}

// GetFollowing GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	page, err := h.graph.Following(c.Request.Context(), c.Param("id"), util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, page)
}

// GetUserProfile returns a user's public profile as the caller sees it
// GET /api/v1/users/:id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	profile, err := h.graph.GetProfile(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, profile)
}

// GetMe returns the caller's own account, including unread counters
// GET /api/v1/users/me
func (h *Handlers) GetMe(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.graph.GetUser(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, user)
}
