package notifications

import (
	"context"
	stderrors "errors"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/util"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Inbox is a page of a user's notifications
type Inbox struct {
	Notifications []*models.Notification `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
	Pagination    util.Pagination        `json:"pagination"`
}

// List returns the user's notifications newest first with senders and
// tweets attached
func (e *Engine) List(ctx context.Context, userID string, page util.Page) (*Inbox, error) {
	user, err := e.users.GetUser(ctx, userID)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, errors.Internal("failed to load user", err)
	}

	var (
		items []*models.Notification
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.db.WithContext(gctx).
			Where("recipient_id = ?", userID).
			Order("created_at DESC").
			Limit(page.Limit).
			Offset(page.Offset()).
			Find(&items).Error
	})
	g.Go(func() error {
		return e.db.WithContext(gctx).Model(&models.Notification{}).
			Where("recipient_id = ?", userID).
			Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Internal("failed to list notifications", err)
	}

	if err := e.attach(ctx, items); err != nil {
		return nil, errors.Internal("failed to load notification details", err)
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return &Inbox{
		Notifications: items,
		UnreadCount:   user.UnreadNotifications,
		Pagination:    util.NewPagination(page, total),
	}, nil
}

func (e *Engine) attach(ctx context.Context, items []*models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	senderIDs := make([]string, 0, len(items))
	var tweetIDs []string
	for _, n := range items {
		senderIDs = append(senderIDs, n.SenderID)
		if n.TweetID != nil {
			tweetIDs = append(tweetIDs, *n.TweetID)
		}
	}
	senders, err := e.users.GetUsers(ctx, senderIDs)
	if err != nil {
		return err
	}
	tweets, err := repository.NewTweetRepository(e.db).GetMany(ctx, tweetIDs)
	if err != nil {
		return err
	}
	for _, n := range items {
		n.Sender = senders[n.SenderID].Public()
		if n.TweetID != nil {
			n.Tweet = tweets[*n.TweetID]
		}
	}
	return nil
}

// owned loads a notification and checks the requester is its recipient
func (e *Engine) owned(ctx context.Context, tx *gorm.DB, notificationID, userID string) (*models.Notification, error) {
	var n models.Notification
	err := tx.WithContext(ctx).Where("id = ?", notificationID).First(&n).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("notification")
	}
	if err != nil {
		return nil, errors.Internal("failed to load notification", err)
	}
	if n.RecipientID != userID {
		return nil, errors.Forbidden("not your notification")
	}
	return &n, nil
}

// MarkRead flips one notification. The unread count drops only if this
// call did the flip.
func (e *Engine) MarkRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	var out *models.Notification
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := e.owned(ctx, tx, notificationID, userID)
		if err != nil {
			return err
		}
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND read = ?", n.ID, false).
			Update("read", true)
		if res.Error != nil {
			return res.Error
		}
		if err := e.users.WithTx(tx).AdjustCounter(ctx, userID, repository.UserUnreadNotifications, -int(res.RowsAffected)); err != nil {
			return err
		}
		n.Read = true
		out = n
		return nil
	})
	if err != nil {
		return nil, errors.As(err)
	}
	return out, nil
}

// MarkAllRead flips every unread notification and returns how many flipped.
// The counter drops by exactly that number.
func (e *Engine) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var flipped int64
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("recipient_id = ? AND read = ?", userID, false).
			Update("read", true)
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected
		return e.users.WithTx(tx).AdjustCounter(ctx, userID, repository.UserUnreadNotifications, -int(flipped))
	})
	if err != nil {
		return 0, errors.Internal("failed to mark notifications read", err)
	}
	return flipped, nil
}

// Delete removes one notification owned by userID
func (e *Engine) Delete(ctx context.Context, notificationID, userID string) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := e.owned(ctx, tx, notificationID, userID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Notification{}, "id = ?", n.ID).Error; err != nil {
			return err
		}
		if n.Read {
			return nil
		}
		return e.users.WithTx(tx).AdjustCounter(ctx, userID, repository.UserUnreadNotifications, -1)
	})
	if err != nil {
		return errors.As(err)
	}
	return nil
}

// DeleteAll clears the user's notifications and returns how many went
func (e *Engine) DeleteAll(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread int64
		if err := tx.Model(&models.Notification{}).
			Where("recipient_id = ? AND read = ?", userID, false).
			Count(&unread).Error; err != nil {
			return err
		}
		res := tx.Where("recipient_id = ?", userID).Delete(&models.Notification{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return e.users.WithTx(tx).AdjustCounter(ctx, userID, repository.UserUnreadNotifications, -int(unread))
	})
	if err != nil {
		return 0, errors.Internal("failed to delete notifications", err)
	}
	return deleted, nil
}

// UnreadCount returns the cached unread total
func (e *Engine) UnreadCount(ctx context.Context, userID string) (int, error) {
	user, err := e.users.GetUser(ctx, userID)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		return 0, errors.NotFound("user")
	}
	if err != nil {
		return 0, errors.Internal("failed to load user", err)
	}
	return user.UnreadNotifications, nil
}
