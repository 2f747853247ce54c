package graph

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/util"
)

// Follow makes followerID follow followeeID. Both sides' counters move in
// the same transaction as the edge.
func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return errors.InvalidOperation("cannot follow yourself")
	}
	return s.tx(ctx, "failed to follow user", func(t *Store) error {
		if _, err := t.GetUser(ctx, followeeID); err != nil {
			return err
		}
		err := t.follows.Add(ctx, &models.Follow{FollowerID: followerID, FolloweeID: followeeID})
		if stderrors.Is(err, repository.ErrAlreadyMember) {
			return errors.AlreadyDone("already following this user")
		}
		if err != nil {
			return err
		}
		if err := t.users.AdjustCounter(ctx, followeeID, repository.UserFollowers, 1); err != nil {
			return err
		}
		return t.users.AdjustCounter(ctx, followerID, repository.UserFollowing, 1)
	})
}

// Unfollow removes the edge. NOT_DONE if it does not exist.
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return errors.InvalidOperation("cannot unfollow yourself")
	}
	return s.tx(ctx, "failed to unfollow user", func(t *Store) error {
		if _, err := t.GetUser(ctx, followeeID); err != nil {
			return err
		}
		err := t.follows.Remove(ctx, map[string]interface{}{"follower_id": followerID, "followee_id": followeeID})
		if stderrors.Is(err, repository.ErrNotMember) {
			return errors.NotDone("not following this user")
		}
		if err != nil {
			return err
		}
		if err := t.users.AdjustCounter(ctx, followeeID, repository.UserFollowers, -1); err != nil {
			return err
		}
		return t.users.AdjustCounter(ctx, followerID, repository.UserFollowing, -1)
	})
}

// IsFollowing reports whether followerID follows followeeID
func (s *Store) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	ok, err := s.follows.Contains(ctx, map[string]interface{}{"follower_id": followerID, "followee_id": followeeID})
	if err != nil {
		return false, errors.Internal("failed to check follow", err)
	}
	return ok, nil
}

// UserPage is a page of users with paging metadata
type UserPage struct {
	Users      []*models.PublicUser `json:"users"`
	Pagination util.Pagination      `json:"pagination"`
}

// Followers lists who follows userID
func (s *Store) Followers(ctx context.Context, userID string, page util.Page) (*UserPage, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetFollowers(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, errors.Internal("failed to load followers", err)
	}
	return &UserPage{Users: publicUsers(users), Pagination: util.NewPagination(page, int64(user.FollowerCount))}, nil
}

// Following lists who userID follows
func (s *Store) Following(ctx context.Context, userID string, page util.Page) (*UserPage, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetFollowing(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, errors.Internal("failed to load following", err)
	}
	return &UserPage{Users: publicUsers(users), Pagination: util.NewPagination(page, int64(user.FollowingCount))}, nil
}

// Profile is a user as another user sees them
type Profile struct {
	*models.PublicUser
	Bio            string    `json:"bio"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	TweetCount     int       `json:"tweet_count"`
	IsFollowing    bool      `json:"is_following"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetProfile loads userID's public profile for viewerID
func (s *Store) GetProfile(ctx context.Context, userID, viewerID string) (*Profile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{
		PublicUser:     user.Public(),
		Bio:            user.Bio,
		FollowerCount:  user.FollowerCount,
		FollowingCount: user.FollowingCount,
		TweetCount:     user.TweetCount,
		CreatedAt:      user.CreatedAt,
	}
	if viewerID != "" && viewerID != userID {
		if p.IsFollowing, err = s.IsFollowing(ctx, viewerID, userID); err != nil {
			return nil, err
		}
	}
	return p, nil
}
