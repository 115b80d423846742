//go:generate go run go.uber.org/mock/mockgen -source=gateway.go -destination=../mocks/mock_sender.go -package=mocks

// Package push delivers Web Push notifications signed with VAPID keys.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/flowchartsman/retry"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/rs/zerolog/log"
)

// ErrSubscriptionGone means the push service forgot the subscription. It will never succeed again.
var ErrSubscriptionGone = errors.New("push subscription gone")

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("push service responded with status %d", e.StatusCode)
}

// Transient reports whether a later attempt may succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Sender delivers one payload to one device subscription.
type Sender interface {
	Send(ctx context.Context, subscription *entity.PushSubscription, payload []byte) error
}

type Config struct {
	Subject    string
	PublicKey  string
	PrivateKey string
	TTL        int
	Timeout    time.Duration
	Attempts   int
}

type Gateway struct {
	options  webpush.Options
	timeout  time.Duration
	attempts int
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := &http.Client{Transport: helpers.NewTransportWithLogger(http.DefaultTransport)}

	return &Gateway{
		options: webpush.Options{
			HTTPClient:      client,
			Subscriber:      cfg.Subject,
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			TTL:             cfg.TTL,
		},
		timeout:  cfg.Timeout,
		attempts: cfg.Attempts,
	}
}

// Send retries transient failures within the gateway timeout. A 404 or 410 answer returns
// ErrSubscriptionGone.
func (g *Gateway) Send(ctx context.Context, subscription *entity.PushSubscription, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	target := &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			Auth:   subscription.Keys.Auth,
			P256dh: subscription.Keys.P256dh,
		},
	}

	// Answers that will not change are kept aside: the retrier returns a stop error raised on
	// the last attempt still wrapped.
	var final error
	retrier := retry.NewRetrier(g.attempts, 100*time.Millisecond, time.Second)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		options := g.options
		resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &options)
		if err != nil {
			if ctx.Err() != nil {
				final = ctx.Err()
				return retry.Stop(final)
			}
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			final = ErrSubscriptionGone
			return retry.Stop(final)
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if !statusErr.Transient() {
			final = statusErr
			return retry.Stop(final)
		}
		return statusErr
	})
	if final != nil {
		return final
	}
	return err
}

// Discard drops every payload. It stands in for the gateway when no VAPID keys are configured.
type Discard struct{}

func (Discard) Send(_ context.Context, subscription *entity.PushSubscription, _ []byte) error {
	log.Debug().Str("subscription", subscription.ID.Hex()).Msg("Push disabled, notification dropped")
	return nil
}
