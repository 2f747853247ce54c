package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter is a cached count column. Only these names may be adjusted.
type Counter string

const (
	UserFollowers           Counter = "follower_count"
	UserFollowing           Counter = "following_count"
	UserTweets              Counter = "tweet_count"
	UserUnreadNotifications Counter = "unread_notifications"
	UserUnreadMessages      Counter = "unread_messages"

	TweetLikes    Counter = "like_count"
	TweetRetweets Counter = "retweet_count"
	TweetReplies  Counter = "reply_count"
)

// counterExpr adds delta to a counter column, flooring at zero
func counterExpr(c Counter, delta int) clause.Expr {
	col := string(c)
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s + ? < 0 THEN 0 ELSE %s + ? END", col, col), delta, delta)
}

// adjust applies delta to one counter of one row of model's table
func adjust(db *gorm.DB, model interface{}, id string, c Counter, delta int) error {
	if delta == 0 {
		return nil
	}
	return db.Model(model).Where("id = ?", id).UpdateColumn(string(c), counterExpr(c, delta)).Error
}
