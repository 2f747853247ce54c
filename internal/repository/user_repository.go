package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/chirpsocial/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles all database operations for users
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]*models.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)

	GetFollowers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)
	GetFollowing(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)

	AdjustCounter(ctx context.Context, userID string, c Counter, delta int) error
	SetCounters(ctx context.Context, userID string, values map[Counter]int64) error
	AllIDs(ctx context.Context) ([]string, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// CreateUser creates a new user
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || strings.TrimSpace(user.Username) == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers loads users by id, keyed by id. Missing ids are simply absent.
func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GetUsersByUsernames resolves @mentions; unknown names are skipped
func (r *userRepository) GetUsersByUsernames(ctx context.Context, usernames []string) ([]*models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(usernames))
	for i, u := range usernames {
		lowered[i] = strings.ToLower(u)
	}
	var users []*models.User
	err := r.db.WithContext(ctx).Where("LOWER(username) IN ?", lowered).Find(&users).Error
	return users, err
}

func (r *userRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// GetFollowers gets users following the given user
func (r *userRepository) GetFollowers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

// GetFollowing gets users that the given user follows
func (r *userRepository) GetFollowing(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

// FollowingIDs returns every id the user follows
func (r *userRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	return ids, err
}

// AdjustCounter moves a cached counter by delta, never below zero
func (r *userRepository) AdjustCounter(ctx context.Context, userID string, c Counter, delta int) error {
	return adjust(r.db.WithContext(ctx), &models.User{}, userID, c, delta)
}

// SetCounters overwrites cached counters, used by the reconcile pass
func (r *userRepository) SetCounters(ctx context.Context, userID string, values map[Counter]int64) error {
	updates := make(map[string]interface{}, len(values))
	for c, v := range values {
		updates[string(c)] = v
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).UpdateColumns(updates).Error
}

func (r *userRepository) AllIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}
