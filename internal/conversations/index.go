// Package conversations keeps direct messages in one canonical channel per
// user pair, with a per-member unread count that always matches the number
// of unread messages addressed to that member.
package conversations

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/chirpsocial/backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Index is the conversation index
type Index struct {
	db            *gorm.DB
	users         repository.UserRepository
	conversations repository.ConversationRepository
	dispatcher    realtime.Dispatcher
}

// NewIndex creates a conversation index. A nil dispatcher disables pushes.
func NewIndex(db *gorm.DB, dispatcher realtime.Dispatcher) *Index {
	if dispatcher == nil {
		dispatcher = realtime.Nop{}
	}
	return &Index{
		db:            db,
		users:         repository.NewUserRepository(db),
		conversations: repository.NewConversationRepository(db),
		dispatcher:    dispatcher,
	}
}

// NewMessage is the input to SendMessage
type NewMessage struct {
	Content string   `json:"content" validate:"max=2000"`
	Media   []string `json:"media" validate:"max=4,dive,required,max=512"`
}

// SendMessage stores a message from sender to recipient and pushes it to the
// recipient if they are online
func (x *Index) SendMessage(ctx context.Context, senderID, recipientID string, in NewMessage) (*models.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && len(in.Media) == 0 {
		return nil, errors.InvalidOperation("message must have content or media")
	}
	if senderID == recipientID {
		return nil, errors.InvalidOperation("cannot message yourself")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: models.ConversationID(senderID, recipientID),
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        in.Content,
		Media:          in.Media,
	}
	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := x.users.WithTx(tx)
		if ok, err := users.Exists(ctx, recipientID); err != nil {
			return err
		} else if !ok {
			return errors.NotFound("user")
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		convs := x.conversations.WithTx(tx)
		if err := convs.Touch(ctx, msg.ConversationID, senderID, recipientID, msg.ID, msg.CreatedAt); err != nil {
			return err
		}
		if err := convs.AdjustUnread(ctx, msg.ConversationID, recipientID, 1); err != nil {
			return err
		}
		return users.AdjustCounter(ctx, recipientID, repository.UserUnreadMessages, 1)
	})
	if err != nil {
		return nil, wrap("failed to send message", err)
	}

	metrics.Get().MessagesSent.Inc()
	if sender, err := x.users.GetUser(ctx, senderID); err == nil {
		msg.Sender = sender.Public()
	} else {
		logger.Log.Warn("Failed to load message sender", logger.WithUserID(senderID), zap.Error(err))
	}
	x.dispatcher.NotifyUser(recipientID, realtime.EventMessageReceived, msg)
	return msg, nil
}

// Thread is a page of one conversation
type Thread struct {
	ConversationID string             `json:"conversation_id"`
	OtherUser      *models.PublicUser `json:"other_user"`
	Messages       []*models.Message  `json:"messages"`
	Pagination     util.Pagination    `json:"pagination"`
	// how many messages this read marked as read
	MarkedRead int64 `json:"marked_read"`
}

// GetConversation returns requester's conversation with other, newest
// first. Unread messages to requester on the returned page are marked read
// and the unread counters drop by exactly the number flipped; unread
// messages on other pages stay unread.
func (x *Index) GetConversation(ctx context.Context, requesterID, otherID string, page util.Page) (*Thread, error) {
	other, err := x.users.GetUser(ctx, otherID)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, errors.Internal("failed to load user", err)
	}

	out := &Thread{
		ConversationID: models.ConversationID(requesterID, otherID),
		OtherUser:      other.Public(),
	}
	err = x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total int64
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ?", out.ConversationID).
			Count(&total).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", out.ConversationID).
			Order("created_at DESC").
			Limit(page.Limit).
			Offset(page.Offset()).
			Find(&out.Messages).Error; err != nil {
			return err
		}
		out.Pagination = util.NewPagination(page, total)

		var unreadIDs []string
		for _, m := range out.Messages {
			if m.RecipientID == requesterID && !m.Read {
				unreadIDs = append(unreadIDs, m.ID)
			}
		}
		if len(unreadIDs) == 0 {
			return nil
		}
		res := tx.Model(&models.Message{}).
			Where("id IN ? AND read = ?", unreadIDs, false).
			Update("read", true)
		if res.Error != nil {
			return res.Error
		}
		out.MarkedRead = res.RowsAffected
		delta := -int(res.RowsAffected)
		if err := x.conversations.WithTx(tx).AdjustUnread(ctx, out.ConversationID, requesterID, delta); err != nil {
			return err
		}
		return x.users.WithTx(tx).AdjustCounter(ctx, requesterID, repository.UserUnreadMessages, delta)
	})
	if err != nil {
		return nil, wrap("failed to load conversation", err)
	}

	for _, m := range out.Messages {
		if m.RecipientID == requesterID {
			m.Read = true
		}
	}
	if out.Messages == nil {
		out.Messages = []*models.Message{}
	}
	return out, nil
}

// Summary is one row of the conversation list
type Summary struct {
	ConversationID string             `json:"conversation_id"`
	OtherUser      *models.PublicUser `json:"other_user"`
	LastMessage    *models.Message    `json:"last_message,omitempty"`
	UnreadCount    int                `json:"unread_count"`
}

// ConversationList is a page of summaries
type ConversationList struct {
	Conversations []*Summary      `json:"conversations"`
	Pagination    util.Pagination `json:"pagination"`
}

// ListConversations returns one summary per conversation, most recent first
func (x *Index) ListConversations(ctx context.Context, userID string, page util.Page) (*ConversationList, error) {
	var (
		rows  []repository.ConversationRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = x.conversations.ListForUser(gctx, userID, page.Limit, page.Offset())
		return err
	})
	g.Go(func() (err error) {
		total, err = x.conversations.CountForUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Internal("failed to list conversations", err)
	}

	otherIDs := make([]string, 0, len(rows))
	var lastIDs []string
	for _, r := range rows {
		otherIDs = append(otherIDs, r.OtherUserID)
		if r.LastMessageID != nil {
			lastIDs = append(lastIDs, *r.LastMessageID)
		}
	}
	others, err := x.users.GetUsers(ctx, otherIDs)
	if err != nil {
		return nil, errors.Internal("failed to load participants", err)
	}
	last := map[string]*models.Message{}
	if len(lastIDs) > 0 {
		var msgs []*models.Message
		if err := x.db.WithContext(ctx).Where("id IN ?", lastIDs).Find(&msgs).Error; err != nil {
			return nil, errors.Internal("failed to load last messages", err)
		}
		for _, m := range msgs {
			last[m.ID] = m
		}
	}

	out := &ConversationList{Conversations: make([]*Summary, 0, len(rows)), Pagination: util.NewPagination(page, total)}
	for _, r := range rows {
		s := &Summary{
			ConversationID: r.ConversationID,
			OtherUser:      others[r.OtherUserID].Public(),
			UnreadCount:    r.UnreadCount,
		}
		if r.LastMessageID != nil {
			s.LastMessage = last[*r.LastMessageID]
		}
		out.Conversations = append(out.Conversations, s)
	}
	return out, nil
}

// DeleteMessage removes a message its sender owns. Deleting an unread
// message takes it off the recipient's counters.
func (x *Index) DeleteMessage(ctx context.Context, messageID, requesterID string) error {
	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		err := tx.Where("id = ?", messageID).First(&msg).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("message")
		}
		if err != nil {
			return err
		}
		if msg.SenderID != requesterID {
			return errors.Forbidden("only the sender can delete this message")
		}
		if err := tx.Delete(&models.Message{}, "id = ?", msg.ID).Error; err != nil {
			return err
		}
		convs := x.conversations.WithTx(tx)
		if err := convs.RefreshLastMessage(ctx, msg.ConversationID); err != nil {
			return err
		}
		if msg.Read {
			return nil
		}
		if err := convs.AdjustUnread(ctx, msg.ConversationID, msg.RecipientID, -1); err != nil {
			return err
		}
		return x.users.WithTx(tx).AdjustCounter(ctx, msg.RecipientID, repository.UserUnreadMessages, -1)
	})
	if err != nil {
		return wrap("failed to delete message", err)
	}
	return nil
}

// UnreadCount is the user's unread total across conversations
func (x *Index) UnreadCount(ctx context.Context, userID string) (int, error) {
	user, err := x.users.GetUser(ctx, userID)
	if stderrors.Is(err, repository.ErrUserNotFound) {
		return 0, errors.NotFound("user")
	}
	if err != nil {
		return 0, errors.Internal("failed to load user", err)
	}
	return user.UnreadMessages, nil
}

func wrap(op string, err error) error {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return errors.Internal(op, err)
}
