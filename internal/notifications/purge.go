package notifications

import (
	"context"

	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/repository"
	"gorm.io/gorm"
)

// PurgeForTweets deletes every notification that references one of
// tweetIDs and takes the unread ones off their recipients' counters. It runs
// inside the caller's transaction.
func PurgeForTweets(ctx context.Context, tx *gorm.DB, tweetIDs []string) error {
	if len(tweetIDs) == 0 {
		return nil
	}
	var unread []struct {
		RecipientID string
		Count       int
	}
	err := tx.WithContext(ctx).Model(&models.Notification{}).
		Select("recipient_id, COUNT(*) AS count").
		Where("tweet_id IN ? AND read = ?", tweetIDs, false).
		Group("recipient_id").
		Scan(&unread).Error
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(tx)
	for _, u := range unread {
		if err := users.AdjustCounter(ctx, u.RecipientID, repository.UserUnreadNotifications, -u.Count); err != nil {
			return err
		}
	}
	return tx.WithContext(ctx).Where("tweet_id IN ?", tweetIDs).Delete(&models.Notification{}).Error
}
