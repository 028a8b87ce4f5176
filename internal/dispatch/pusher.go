// internal/dispatch/pusher.go
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	apperrors "github.com/FreakyLetsFail/NKalendar/internal/common/errors"
	"github.com/FreakyLetsFail/NKalendar/internal/common/logger"
	"github.com/FreakyLetsFail/NKalendar/internal/common/metrics"
	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

var (
	ErrPushSendFailed      = errors.New("PUSH_SEND_FAILED")
	ErrSubscriptionExpired = errors.New("SUBSCRIPTION_EXPIRED")
)

// WebPushSender performs one encrypted delivery and reports the push
// service's status code. An interface so tests can fake the wire.
type WebPushSender interface {
	Send(ctx context.Context, sub models.Subscription, message []byte) (int, error)
}

// vapidSender delivers through the Web Push protocol with VAPID
// authentication.
type vapidSender struct {
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
	ttl             int
}

func NewVAPIDSender(subscriber, publicKey, privateKey string, ttl int) WebPushSender {
	return &vapidSender{
		subscriber:      subscriber,
		vapidPublicKey:  publicKey,
		vapidPrivateKey: privateKey,
		ttl:             ttl,
	}
}

func (s *vapidSender) Send(ctx context.Context, sub models.Subscription, message []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber, // webpush-go adds mailto: automatically
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Config for the dispatcher; Timeout bounds one delivery so an
// unreachable push service cannot stall the whole scan.
type DispatcherConfig struct {
	Timeout time.Duration
}

// Dispatcher delivers one payload to one subscription and isolates
// failure: every error is logged, counted, and returned without ever
// aborting the caller's loop. No retry happens within a scan pass and
// expired subscriptions are left in the store.
type Dispatcher struct {
	config DispatcherConfig
	sender WebPushSender
	logger logger.Logger
}

func NewDispatcher(config DispatcherConfig, sender WebPushSender, log logger.Logger) *Dispatcher {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		config: config,
		sender: sender,
		logger: log.WithFields(map[string]interface{}{"component": "pusher"}),
	}
}

// Dispatch attempts exactly one delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, sub models.Subscription, payload models.PushPayload) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrPushSendFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	metrics.PushInFlight.Inc()
	start := time.Now()
	statusCode, err := d.sender.Send(ctx, sub, message)
	duration := time.Since(start)
	metrics.PushInFlight.Dec()

	if err != nil {
		metrics.PushDispatches.WithLabelValues("error").Inc()
		metrics.PushDispatchDuration.WithLabelValues("error").Observe(duration.Seconds())
		stdErr := apperrors.NewPushSendFailedError(sub.Endpoint, err)
		d.logger.Error("push delivery failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		return fmt.Errorf("%w: %v", ErrPushSendFailed, err)
	}

	switch {
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		// Endpoint revoked by the push service. Left in the store on
		// purpose; pruning is a manual operation.
		metrics.PushDispatches.WithLabelValues("expired").Inc()
		metrics.PushDispatchDuration.WithLabelValues("expired").Observe(duration.Seconds())
		stdErr := apperrors.NewSubscriptionExpiredError(sub.Endpoint, statusCode)
		d.logger.Warn("push subscription expired", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		return fmt.Errorf("%w: status %d", ErrSubscriptionExpired, statusCode)

	case statusCode >= http.StatusBadRequest:
		metrics.PushDispatches.WithLabelValues("error").Inc()
		metrics.PushDispatchDuration.WithLabelValues("error").Observe(duration.Seconds())
		d.logger.Error("push service rejected delivery", map[string]interface{}{
			"status": statusCode,
		})
		return fmt.Errorf("%w: status %d", ErrPushSendFailed, statusCode)
	}

	metrics.PushDispatches.WithLabelValues("sent").Inc()
	metrics.PushDispatchDuration.WithLabelValues("sent").Observe(duration.Seconds())
	return nil
}
