package notifications

import (
	"context"

	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/chirpsocial/backend/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("github.com/chirpsocial/backend/internal/notifications")

// Engine persists notifications and pushes them to connected recipients
type Engine struct {
	db         *gorm.DB
	users      repository.UserRepository
	dispatcher realtime.Dispatcher
}

// NewEngine creates a fan-out engine. A nil dispatcher disables pushes.
func NewEngine(db *gorm.DB, dispatcher realtime.Dispatcher) *Engine {
	if dispatcher == nil {
		dispatcher = realtime.Nop{}
	}
	return &Engine{
		db:         db,
		users:      repository.NewUserRepository(db),
		dispatcher: dispatcher,
	}
}

// Emit applies self-suppression, persists each event and pushes the ones
// that were actually created. It runs after the originating mutation has
// committed; failures are logged and counted and never returned, so the
// caller's response does not depend on fan-out.
func (e *Engine) Emit(ctx context.Context, events ...Event) []*models.Notification {
	if len(events) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "notifications.Emit")
	defer span.End()
	span.SetAttributes(attribute.Int("notifications.candidates", len(events)))

	m := metrics.Get()
	var created []*models.Notification
	for _, ev := range events {
		if ev.selfInflicted() {
			continue
		}
		n, inserted, err := e.persist(ctx, ev)
		if err != nil {
			m.NotificationsFailed.WithLabelValues(string(ev.Type)).Inc()
			logger.Log.Error("Failed to persist notification",
				zap.String("type", string(ev.Type)),
				logger.WithUserID(ev.RecipientID),
				zap.String("actor_id", ev.ActorID),
				zap.Error(err),
			)
			continue
		}
		if !inserted {
			m.NotificationsDeduped.WithLabelValues(string(ev.Type)).Inc()
			continue
		}
		m.NotificationsCreated.WithLabelValues(string(ev.Type)).Inc()
		created = append(created, n)
	}

	if len(created) > 0 {
		e.push(ctx, created)
	}
	span.SetAttributes(attribute.Int("notifications.created", len(created)))
	return created
}

// persist inserts the notification and bumps the recipient's unread count
// in one transaction. A dedupe-key conflict inserts nothing and leaves the
// count alone.
func (e *Engine) persist(ctx context.Context, ev Event) (*models.Notification, bool, error) {
	n := &models.Notification{
		RecipientID: ev.RecipientID,
		SenderID:    ev.ActorID,
		Type:        ev.Type,
		TweetID:     ev.TweetID,
	}
	inserted := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).Create(n)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return e.users.WithTx(tx).AdjustCounter(ctx, ev.RecipientID, repository.UserUnreadNotifications, 1)
	})
	return n, inserted, err
}

// push sends each new notification with its sender attached
func (e *Engine) push(ctx context.Context, created []*models.Notification) {
	ids := make([]string, 0, len(created))
	for _, n := range created {
		ids = append(ids, n.SenderID)
	}
	senders, err := e.users.GetUsers(ctx, ids)
	if err != nil {
		logger.Log.Warn("Failed to load notification senders", zap.Error(err))
	}
	for _, n := range created {
		n.Sender = senders[n.SenderID].Public()
		e.dispatcher.NotifyUser(n.RecipientID, realtime.EventNotification, n)
	}
}
