package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/push"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	welcomeTitle = "¡Enhorabuena!"
	welcomeText  = "Te has suscrito a las notificaciones de Patas Arriba"
)

// NotificationJob describes one push fan-out. Recipients are the eligible users of the room
// minus Exclude. When Targets is set the job goes to exactly those subscriptions instead.
type NotificationJob struct {
	RelatedType entity.RelatedType
	RelatedID   primitive.ObjectID
	SenderID    primitive.ObjectID
	Title       string
	Text        string
	Exclude     []primitive.ObjectID

	Targets []*entity.PushSubscription
}

type DeliveryReport struct {
	Recipients    int
	Subscriptions int
	Sent          int
	Failed        int
	Removed       int
}

type NotificationConfig struct {
	Workers     int
	QueueSize   int
	Parallelism int
}

type NotificationService struct {
	stores      Stores
	sender      push.Sender
	jobs        chan NotificationJob
	workers     int
	parallelism int
}

func NewNotificationService(stores Stores, sender push.Sender, cfg NotificationConfig) *NotificationService {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	return &NotificationService{
		stores:      stores,
		sender:      sender,
		jobs:        make(chan NotificationJob, cfg.QueueSize),
		workers:     cfg.Workers,
		parallelism: cfg.Parallelism,
	}
}

// Enqueue never blocks. It reports false when the queue is full and the job was dropped.
func (s *NotificationService) Enqueue(job NotificationJob) bool {
	select {
	case s.jobs <- job:
		return true
	default:
		return false
	}
}

// Run consumes the queue until ctx is done. Jobs still queued at that point are dropped.
func (s *NotificationService) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-s.jobs:
					s.handle(ctx, job)
				}
			}
		})
	}

	err := g.Wait()
	log.Info().Int("dropped", len(s.jobs)).Msg("Notification workers stopped")
	return err
}

func (s *NotificationService) handle(ctx context.Context, job NotificationJob) {
	report, err := s.Deliver(ctx, job)
	if err != nil {
		log.Error().Err(err).
			Str("room", job.RelatedID.Hex()).
			Msg("Failed to deliver notifications")
		return
	}

	log.Debug().
		Str("room", job.RelatedID.Hex()).
		Int("recipients", report.Recipients).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("removed", report.Removed).
		Msg("Notifications delivered")
}

// Recipients returns the eligible users of the room minus the excluded ones, each once.
func (s *NotificationService) Recipients(ctx context.Context, job NotificationJob) ([]primitive.ObjectID, error) {
	var eligible []primitive.ObjectID

	switch job.RelatedType {
	case entity.RelatedTypeEvent:
		userIDs, err := s.stores.Attendees.FindUserIDsByEventID(ctx, job.RelatedID)
		if err != nil {
			return nil, err
		}
		eligible = userIDs
	case entity.RelatedTypeCarGroup:
		carGroup, err := findCarGroup(ctx, s.stores.CarGroups, job.RelatedID)
		if err != nil {
			return nil, err
		}
		eligible = carGroup.Members()
	default:
		return nil, ErrInvalidRelatedType
	}

	exclude := append([]primitive.ObjectID{job.SenderID}, job.Exclude...)
	return lo.Uniq(lo.Without(eligible, exclude...)), nil
}

// Deliver sends the job to every device of every recipient in parallel. A failing device
// never affects the others. Subscriptions the push service reports gone are deleted.
func (s *NotificationService) Deliver(ctx context.Context, job NotificationJob) (*DeliveryReport, error) {
	report := &DeliveryReport{}

	subscriptions := job.Targets
	if subscriptions == nil {
		recipients, err := s.Recipients(ctx, job)
		if err != nil {
			return nil, err
		}
		report.Recipients = len(recipients)
		if len(recipients) == 0 {
			return report, nil
		}

		subscriptions, err = s.stores.PushSubscriptions.FindManyByUserIDs(ctx, recipients)
		if err != nil {
			return nil, err
		}
	}
	report.Subscriptions = len(subscriptions)
	if len(subscriptions) == 0 {
		return report, nil
	}

	notification := entity.Notification{
		Title:       job.Title,
		Text:        helpers.Truncate(s.notificationText(ctx, job), helpers.NotificationMaxLength),
		RelatedType: job.RelatedType,
	}
	if !job.RelatedID.IsZero() {
		notification.RelatedID = job.RelatedID.Hex()
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, err
	}

	var sent, failed, removed int64

	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)
	for _, subscription := range subscriptions {
		g.Go(func() error {
			err := s.sender.Send(ctx, subscription, payload)
			if err == nil {
				atomic.AddInt64(&sent, 1)
				return nil
			}

			atomic.AddInt64(&failed, 1)
			if errors.Is(err, push.ErrSubscriptionGone) {
				if err := s.stores.PushSubscriptions.DeleteOneByEndpoint(ctx, subscription.Endpoint); err == nil {
					atomic.AddInt64(&removed, 1)
				}
				return nil
			}

			log.Warn().Err(err).
				Str("user", subscription.UserID.Hex()).
				Str("subscription", subscription.ID.Hex()).
				Msg("Push delivery failed")
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = int(sent)
	report.Failed = int(failed)
	report.Removed = int(removed)
	return report, nil
}

// notificationText prefixes the text with the sender's display name when there is a sender.
func (s *NotificationService) notificationText(ctx context.Context, job NotificationJob) string {
	if job.SenderID.IsZero() {
		return job.Text
	}

	user, err := s.stores.Users.FindOneByID(ctx, job.SenderID)
	if err != nil || user.DisplayName() == "" {
		return job.Text
	}
	return user.DisplayName() + ": " + job.Text
}

// Subscribe registers the device and queues a welcome notification to it.
func (s *NotificationService) Subscribe(ctx context.Context, userID primitive.ObjectID, subscription entity.PushSubscription) (*entity.PushSubscription, error) {
	subscription.UserID = userID

	saved, err := s.stores.PushSubscriptions.Upsert(ctx, subscription)
	if err != nil {
		return nil, err
	}

	if !s.Enqueue(NotificationJob{Title: welcomeTitle, Text: welcomeText, Targets: []*entity.PushSubscription{saved}}) {
		log.Warn().Str("user", userID.Hex()).Msg("Notification queue full, welcome skipped")
	}

	return saved, nil
}

// Unsubscribe removes the device bound to endpoint, or every device of the user when endpoint is empty.
func (s *NotificationService) Unsubscribe(ctx context.Context, userID primitive.ObjectID, endpoint string) (int64, error) {
	return s.stores.PushSubscriptions.DeleteManyByUserID(ctx, userID, endpoint)
}
