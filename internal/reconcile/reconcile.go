// Package reconcile recomputes cached counters from the relation tables.
// Writes keep counters exact transactionally; this is the repair pass for
// rows touched outside the service (manual SQL, restored backups).
package reconcile

import (
	"context"
	"fmt"

	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// counter pairs a cached column with the query that derives it. source is
// a scalar subquery correlated on the outer table.
type counter struct {
	table  string
	column repository.Counter
	source string
}

var userCounters = []counter{
	{"users", repository.UserFollowers, "SELECT COUNT(*) FROM follows f WHERE f.followee_id = users.id"},
	{"users", repository.UserFollowing, "SELECT COUNT(*) FROM follows f WHERE f.follower_id = users.id"},
	{"users", repository.UserTweets, "SELECT COUNT(*) FROM tweets t WHERE t.author_id = users.id"},
	{"users", repository.UserUnreadNotifications, "SELECT COUNT(*) FROM notifications n WHERE n.recipient_id = users.id AND n.read = ?"},
	{"users", repository.UserUnreadMessages, "SELECT COUNT(*) FROM messages m WHERE m.recipient_id = users.id AND m.read = ?"},
}

var tweetCounters = []counter{
	{"tweets", repository.TweetLikes, "SELECT COUNT(*) FROM tweet_likes l WHERE l.tweet_id = tweets.id"},
	{"tweets", repository.TweetRetweets, "SELECT COUNT(*) FROM tweet_retweets r WHERE r.tweet_id = tweets.id"},
	{"tweets", repository.TweetReplies, "SELECT COUNT(*) FROM tweets r WHERE r.parent_tweet_id = tweets.id"},
}

var memberCounters = []counter{
	{"conversation_members", "unread_count", "SELECT COUNT(*) FROM messages m WHERE m.conversation_id = conversation_members.conversation_id AND m.recipient_id = conversation_members.user_id AND m.read = ?"},
}

// Report is how many rows each counter rewrote, keyed "table.column"
type Report map[string]int64

// Total sums the report
func (r Report) Total() int64 {
	var n int64
	for _, v := range r {
		n += v
	}
	return n
}

// Run repairs every counter. Tables are processed concurrently, columns of
// one table in sequence so two updates never lock the same rows.
func Run(ctx context.Context, db *gorm.DB) (Report, error) {
	groups := [][]counter{userCounters, tweetCounters, memberCounters}
	results := make([]Report, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		results[i] = Report{}
		g.Go(func() error {
			for _, c := range group {
				n, err := repair(gctx, db, c)
				if err != nil {
					return err
				}
				results[i][c.table+"."+string(c.column)] = n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := Report{}
	for _, r := range results {
		for k, v := range r {
			report[k] = v
		}
	}
	logger.Log.Info("✅ Counters reconciled", zap.Int64("rows_repaired", report.Total()))
	return report, nil
}

// repair rewrites only rows whose cached value disagrees with the source
func repair(ctx context.Context, db *gorm.DB, c counter) (int64, error) {
	col := string(c.column)
	sql := fmt.Sprintf("UPDATE %s SET %s = (%s) WHERE %s <> (%s)", c.table, col, c.source, col, c.source)

	var args []interface{}
	for i := 0; i < countPlaceholders(c.source)*2; i++ {
		args = append(args, false)
	}

	res := db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("reconcile %s.%s: %w", c.table, col, res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.Get().CountersRepaired.WithLabelValues(c.table + "." + col).Add(float64(res.RowsAffected))
		logger.Log.Warn("Counter drift repaired",
			zap.String("counter", c.table+"."+col),
			zap.Int64("rows", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func countPlaceholders(s string) int {
	n := 0
	for _, r := range s {
		if r == '?' {
			n++
		}
	}
	return n
}
