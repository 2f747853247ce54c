package repository

import (
	"context"
	"time"

	"github.com/chirpsocial/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRow is one conversation from a member's point of view
type ConversationRow struct {
	ConversationID string
	OtherUserID    string
	UnreadCount    int
	LastMessageID  *string
	LastMessageAt  time.Time
}

// ConversationRepository stores conversations and their two members
type ConversationRepository interface {
	WithTx(tx *gorm.DB) ConversationRepository

	// Touch creates the conversation and both members if needed and points
	// it at its newest message
	Touch(ctx context.Context, conversationID, a, b, lastMessageID string, at time.Time) error
	RefreshLastMessage(ctx context.Context, conversationID string) error
	AdjustUnread(ctx context.Context, conversationID, userID string, delta int) error
	SetUnread(ctx context.Context, conversationID, userID string, n int64) error
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]ConversationRow, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	Members(ctx context.Context) ([]models.ConversationMember, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) WithTx(tx *gorm.DB) ConversationRepository {
	return &conversationRepository{db: tx}
}

func (r *conversationRepository) Touch(ctx context.Context, conversationID, a, b, lastMessageID string, at time.Time) error {
	db := r.db.WithContext(ctx)
	conv := models.Conversation{ID: conversationID, LastMessageID: &lastMessageID, LastMessageAt: at}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_message_id", "last_message_at"}),
	}).Create(&conv).Error
	if err != nil {
		return err
	}
	members := []models.ConversationMember{
		{ConversationID: conversationID, UserID: a, OtherUserID: b},
		{ConversationID: conversationID, UserID: b, OtherUserID: a},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error
}

// RefreshLastMessage re-points the conversation at its newest remaining message
func (r *conversationRepository) RefreshLastMessage(ctx context.Context, conversationID string) error {
	db := r.db.WithContext(ctx)
	var last models.Message
	res := db.Where("conversation_id = ?", conversationID).Order("created_at DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return res.Error
	}
	updates := map[string]interface{}{"last_message_id": nil}
	if res.RowsAffected > 0 {
		updates = map[string]interface{}{"last_message_id": last.ID, "last_message_at": last.CreatedAt}
	}
	return db.Model(&models.Conversation{}).Where("id = ?", conversationID).UpdateColumns(updates).Error
}

func (r *conversationRepository) AdjustUnread(ctx context.Context, conversationID, userID string, delta int) error {
	if delta == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		UpdateColumn("unread_count", gorm.Expr("CASE WHEN unread_count + ? < 0 THEN 0 ELSE unread_count + ? END", delta, delta)).Error
}

func (r *conversationRepository) SetUnread(ctx context.Context, conversationID, userID string, n int64) error {
	return r.db.WithContext(ctx).Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		UpdateColumn("unread_count", n).Error
}

// ListForUser returns the user's conversations, most recent message first
func (r *conversationRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]ConversationRow, error) {
	var rows []ConversationRow
	err := r.db.WithContext(ctx).
		Table("conversation_members").
		Select("conversation_members.conversation_id, conversation_members.other_user_id, conversation_members.unread_count, conversations.last_message_id, conversations.last_message_at").
		Joins("JOIN conversations ON conversations.id = conversation_members.conversation_id").
		Where("conversation_members.user_id = ?", userID).
		Order("conversations.last_message_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	return rows, err
}

func (r *conversationRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationMember{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Members returns every member row, for the reconcile pass
func (r *conversationRepository) Members(ctx context.Context) ([]models.ConversationMember, error) {
	var members []models.ConversationMember
	err := r.db.WithContext(ctx).Find(&members).Error
	return members, err
}
