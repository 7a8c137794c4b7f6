package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/internal/tasks"
	apperrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/metrics"
	"github.com/charlesng35/picketer/pkg/push"
)

// SubscribeInput mirrors the PushSubscription JSON produced by browsers.
type SubscribeInput struct {
	Endpoint       string   `json:"endpoint" validate:"required,url"`
	ExpirationTime *float64 `json:"expirationTime"`
	Keys           struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

// Broadcaster queues a push notification for every subscription held by
// accounts with one of roles, or by everyone when roles is empty.
type Broadcaster interface {
	Broadcast(name string, payload push.Payload, roles ...string)
}

// DeliveryStats summarises one fan-out.
type DeliveryStats struct {
	Delivered int
	Failed    int
	Removed   int
}

// SubscriptionService stores push subscriptions and fans notifications out to them.
type SubscriptionService struct {
	db     *gorm.DB
	sender push.Sender
	tasks  tasks.Dispatcher
	log    *zap.Logger
}

// NewSubscriptionService constructs a SubscriptionService. A nil dispatcher runs
// deliveries inline.
func NewSubscriptionService(db *gorm.DB, sender push.Sender, dispatcher tasks.Dispatcher) (*SubscriptionService, error) {
	if db == nil {
		return nil, errors.New("subscription service: db is required")
	}
	if sender == nil {
		return nil, errors.New("subscription service: sender is required")
	}
	if dispatcher == nil {
		dispatcher = tasks.Inline{}
	}
	return &SubscriptionService{
		db:     db,
		sender: sender,
		tasks:  dispatcher,
		log:    logger.WithModule("push"),
	}, nil
}

// Subscribe stores the subscription for userID. Re-subscribing an endpoint
// moves it to the caller and refreshes its keys. A welcome notification is queued.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID string, input SubscribeInput) (*models.PushSubscription, error) {
	ctx = ensureContext(ctx)

	input.Endpoint = strings.TrimSpace(input.Endpoint)
	if err := validate(input); err != nil {
		return nil, err
	}

	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: input.Endpoint,
		P256dh:   input.Keys.P256dh,
		Auth:     input.Keys.Auth,
	}
	if input.ExpirationTime != nil {
		expires := time.UnixMilli(int64(*input.ExpirationTime)).UTC()
		sub.ExpirationTime = &expires
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "expiration_time", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, fmt.Errorf("subscription service: store subscription: %w", err)
	}

	var stored models.PushSubscription
	if err := s.db.WithContext(ctx).Take(&stored, "endpoint = ?", sub.Endpoint).Error; err != nil {
		return nil, fmt.Errorf("subscription service: reload subscription: %w", err)
	}

	target := stored
	s.tasks.Dispatch("push.welcome", func(ctx context.Context) error {
		_, err := s.deliver(ctx, []models.PushSubscription{target}, push.Payload{
			Title: "Notifications enabled",
			Body:  "You will be notified about new pickets.",
		})
		return err
	})

	return &stored, nil
}

// Unsubscribe removes the caller's subscription for endpoint.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	res := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ? AND endpoint = ?", userID, strings.TrimSpace(endpoint)).
		Delete(&models.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("subscription service: delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound.WithMessage("Subscription not found")
	}
	return nil
}

// Broadcast implements Broadcaster by queueing Deliver on the dispatcher.
func (s *SubscriptionService) Broadcast(name string, payload push.Payload, roles ...string) {
	s.tasks.Dispatch(name, func(ctx context.Context) error {
		_, err := s.Deliver(ctx, payload, roles...)
		return err
	})
}

// Deliver sends payload to every matching subscription. Only endpoints the
// push service reports as gone are deleted; other failures are counted and
// the subscription is kept for the next fan-out.
func (s *SubscriptionService) Deliver(ctx context.Context, payload push.Payload, roles ...string) (DeliveryStats, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.PushSubscription{})
	if len(roles) > 0 {
		query = query.Where("user_id IN (?)", s.db.Model(&models.User{}).Select("id").Where("role IN ?", roles))
	}

	var subs []models.PushSubscription
	if err := query.Find(&subs).Error; err != nil {
		return DeliveryStats{}, fmt.Errorf("subscription service: load subscriptions: %w", err)
	}
	return s.deliver(ctx, subs, payload)
}

func (s *SubscriptionService) deliver(ctx context.Context, subs []models.PushSubscription, payload push.Payload) (DeliveryStats, error) {
	var stats DeliveryStats
	var stale []string

	for _, sub := range subs {
		if ctx.Err() != nil {
			s.log.Warn("push fan-out interrupted",
				zap.Int("pending", len(subs)-stats.Delivered-stats.Failed-len(stale)),
				zap.Error(ctx.Err()),
			)
			break
		}
		err := s.sender.Send(ctx, push.Subscription{
			Endpoint: sub.Endpoint,
			P256dh:   sub.P256dh,
			Auth:     sub.Auth,
		}, payload)
		switch {
		case err == nil:
			stats.Delivered++
			metrics.Deliveries.WithLabelValues("push", "ok").Inc()
		case errors.Is(err, push.ErrDisabled):
			metrics.Deliveries.WithLabelValues("push", "disabled").Inc()
			return stats, nil
		case errors.Is(err, push.ErrSubscriptionGone):
			metrics.Deliveries.WithLabelValues("push", "gone").Inc()
			s.log.Info("removing expired push subscription",
				zap.String("subscription_id", sub.ID),
			)
			stale = append(stale, sub.ID)
		default:
			stats.Failed++
			metrics.Deliveries.WithLabelValues("push", "error").Inc()
			s.log.Warn("push delivery failed",
				zap.String("subscription_id", sub.ID),
				zap.Error(err),
			)
		}
	}

	if len(stale) > 0 {
		res := s.db.WithContext(context.WithoutCancel(ctx)).Where("id IN ?", stale).Delete(&models.PushSubscription{})
		if res.Error != nil {
			return stats, fmt.Errorf("subscription service: remove stale subscriptions: %w", res.Error)
		}
		stats.Removed = int(res.RowsAffected)
	}
	return stats, nil
}
