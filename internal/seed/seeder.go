package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/chirpsocial/backend/internal/conversations"
	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/chirpsocial/backend/internal/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options sizes a seeding run
type Options struct {
	Users          int
	TweetsPerUser  int
	FollowsPerUser int
	LikesPerUser   int
	Messages       int
}

// DevOptions is a populated development database
func DevOptions() Options {
	return Options{Users: 50, TweetsPerUser: 10, FollowsPerUser: 8, LikesPerUser: 15, Messages: 100}
}

// TestOptions is the minimal data set
func TestOptions() Options {
	return Options{Users: 5, TweetsPerUser: 2, FollowsPerUser: 2, LikesPerUser: 2, Messages: 5}
}

// Summary counts what a run created
type Summary struct {
	Users    int
	Tweets   int
	Follows  int
	Likes    int
	Messages int
}

// Seeder handles database seeding operations. Everything except user rows
// goes through the domain services, so counters, notifications and
// conversation indexes come out consistent.
type Seeder struct {
	db            *gorm.DB
	graph         *graph.Store
	social        *social.Service
	conversations *conversations.Index
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	store := graph.NewStore(db)
	return &Seeder{
		db:            db,
		graph:         store,
		social:        social.NewService(store, notifications.NewEngine(db, realtime.Nop{}), realtime.Nop{}),
		conversations: conversations.NewIndex(db, realtime.Nop{}),
	}
}

// Seed creates users, then tweets, follows, likes and messages between them
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{}

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)
	if len(users) < 2 {
		return sum, nil
	}

	logger.Log.Info("Creating follows...")
	if sum.Follows, err = s.seedFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return nil, fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating tweets...")
	tweets, err := s.seedTweets(ctx, users, opts.TweetsPerUser)
	if err != nil {
		return nil, fmt.Errorf("failed to seed tweets: %w", err)
	}
	sum.Tweets = len(tweets)

	logger.Log.Info("Creating likes...")
	if sum.Likes, err = s.seedLikes(ctx, users, tweets, opts.LikesPerUser); err != nil {
		return nil, fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Creating messages...")
	if sum.Messages, err = s.seedMessages(ctx, users, opts.Messages); err != nil {
		return nil, fmt.Errorf("failed to seed messages: %w", err)
	}

	logger.Log.Info("✅ Seeding complete",
		zap.Int("users", sum.Users),
		zap.Int("tweets", sum.Tweets),
		zap.Int("follows", sum.Follows),
		zap.Int("likes", sum.Likes),
		zap.Int("messages", sum.Messages))
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		// Ensure unique username
		for {
			_, err := s.graph.GetUserByUsername(ctx, username)
			if errors.CodeOf(err) == errors.ErrNotFound {
				break
			}
			if err != nil {
				return nil, err
			}
			username = strings.ToLower(gofakeit.Username())
		}

		user := &models.User{
			Username:    username,
			DisplayName: gofakeit.Name(),
			Bio:         fmt.Sprintf("%s Based in %s.", gofakeit.HipsterSentence(), gofakeit.City()),
			CreatedAt:   gofakeit.DateRange(time.Now().AddDate(-1, 0, 0), time.Now()),
		}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	n := 0
	for _, u := range users {
		for _, i := range rand.Perm(len(users))[:min(perUser, len(users))] {
			target := users[i]
			if target.ID == u.ID {
				continue
			}
			if err := s.social.Follow(ctx, u.ID, target.ID); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Seeder) seedTweets(ctx context.Context, users []*models.User, perUser int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	for round := 0; round < perUser; round++ {
		for _, u := range users {
			in := graph.NewTweet{Content: gofakeit.HipsterSentence()}
			if rand.Intn(3) == 0 {
				in.Content += " #" + strings.ToLower(gofakeit.Word())
			}
			if rand.Intn(5) == 0 {
				other := users[rand.Intn(len(users))]
				in.Content += " @" + other.Username
			}
			if len(tweets) > 0 && rand.Intn(4) == 0 {
				parent := tweets[rand.Intn(len(tweets))]
				in.ParentTweetID = &parent.ID
			}

			tweet, err := s.social.PostTweet(ctx, u.ID, in, "")
			if err != nil {
				return nil, err
			}
			createdAt := gofakeit.DateRange(time.Now().AddDate(0, -1, 0), time.Now())
			if err := s.db.WithContext(ctx).Model(tweet).UpdateColumn("created_at", createdAt).Error; err != nil {
				return nil, err
			}
			tweets = append(tweets, tweet)
		}
	}
	return tweets, nil
}

func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, tweets []*models.Tweet, perUser int) (int, error) {
	if len(tweets) == 0 {
		return 0, nil
	}
	n := 0
	for _, u := range users {
		for _, i := range rand.Perm(len(tweets))[:min(perUser, len(tweets))] {
			_, err := s.social.LikeTweet(ctx, tweets[i].ID, u.ID, "")
			if err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Seeder) seedMessages(ctx context.Context, users []*models.User, count int) (int, error) {
	for i := 0; i < count; i++ {
		from := users[rand.Intn(len(users))]
		to := users[rand.Intn(len(users))]
		for to.ID == from.ID {
			to = users[rand.Intn(len(users))]
		}
		if _, err := s.conversations.SendMessage(ctx, from.ID, to.ID, conversations.NewMessage{Content: gofakeit.HipsterSentence()}); err != nil {
			return i, err
		}
	}
	return count, nil
}

// Clean removes every row from every table (use with caution)
func (s *Seeder) Clean(ctx context.Context) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("failed to clean %T: %w", all[i], err)
		}
	}
	logger.Log.Info("✅ Seed data cleaned")
	return nil
}
