// internal/dispatch/scanner.go
package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/FreakyLetsFail/NKalendar/internal/common/errors"
	"github.com/FreakyLetsFail/NKalendar/internal/common/logger"
	"github.com/FreakyLetsFail/NKalendar/internal/common/metrics"
	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// DueNotificationSource supplies due, unsent reminders and commits the
// sent flag.
type DueNotificationSource interface {
	Due(ctx context.Context, now time.Time) ([]models.DueNotification, error)
	MarkSent(ctx context.Context, id string) error
}

// AudienceResolver maps one due record to its delivery plan.
type AudienceResolver interface {
	Resolve(ctx context.Context, due models.DueNotification) (Audience, error)
}

// PushDispatcher delivers one payload to one subscription.
type PushDispatcher interface {
	Dispatch(ctx context.Context, sub models.Subscription, payload models.PushPayload) error
}

// ScanLock guards against overlapping passes. Optional.
type ScanLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ScannerConfig bounds the per-record fan-out.
type ScannerConfig struct {
	MaxInFlight int
}

// Scanner is the orchestrating routine run once per trigger invocation.
// Each pass queries the due set, fans out delivery per record, and
// marks each record sent after its full audience has been attempted.
// Re-running a pass is safe: sent writes are the only mutation.
type Scanner struct {
	config        ScannerConfig
	notifications DueNotificationSource
	resolver      AudienceResolver
	dispatcher    PushDispatcher
	lock          ScanLock
	now           func() time.Time
	logger        logger.Logger
}

func NewScanner(
	config ScannerConfig,
	notifications DueNotificationSource,
	resolver AudienceResolver,
	dispatcher PushDispatcher,
	lock ScanLock,
	log logger.Logger,
) *Scanner {
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 32
	}
	return &Scanner{
		config:        config,
		notifications: notifications,
		resolver:      resolver,
		dispatcher:    dispatcher,
		lock:          lock,
		now:           time.Now,
		logger:        log.WithFields(map[string]interface{}{"component": "scanner"}),
	}
}

// WithClock overrides the time source. Tests pin the scan instant with
// it.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Run executes one scan pass and returns the number of records
// processed. A store failure aborts the pass with no records mutated;
// the next scheduled invocation retries the same due set.
func (s *Scanner) Run(ctx context.Context) (int, error) {
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			// The lock is advisory. A dead Redis must not stop
			// reminders from going out.
			s.logger.Warn("scan lock unavailable, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		} else if !ok {
			s.logger.Info("scan already in progress, skipping pass", nil)
			metrics.ScanRuns.WithLabelValues("skipped").Inc()
			return 0, nil
		} else {
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("failed to release scan lock", map[string]interface{}{
						"error": err.Error(),
					})
				}
			}()
		}
	}

	due, err := s.notifications.Due(ctx, s.now())
	if err != nil {
		metrics.ScanRuns.WithLabelValues("error").Inc()
		stdErr := apperrors.NewStoreUnreachableError(err)
		s.logger.Error("due-record query failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		return 0, stdErr
	}

	if len(due) == 0 {
		metrics.ScanRuns.WithLabelValues("empty").Inc()
		return 0, nil
	}

	s.logger.Info("processing due notifications", map[string]interface{}{
		"count": len(due),
	})

	processed := 0
	for _, record := range due {
		if err := s.processRecord(ctx, record); err != nil {
			metrics.ScanRuns.WithLabelValues("error").Inc()
			return processed, err
		}
		processed++
	}

	metrics.ScanRuns.WithLabelValues("ok").Inc()
	return processed, nil
}

// processRecord handles one record's full audience before returning,
// so a record's sends never interleave with another's. Individual
// dispatch failures are isolated; only an audience-store failure
// propagates.
func (s *Scanner) processRecord(ctx context.Context, record models.DueNotification) error {
	audience, err := s.resolver.Resolve(ctx, record)
	if err != nil {
		return fmt.Errorf("resolve audience for record %s: %w", record.ID, err)
	}

	metrics.RecordsProcessed.WithLabelValues(string(audience.Tier)).Inc()

	if audience.Tier == TierNone {
		// Drop rather than loop forever on a misconfigured record.
		s.markSent(ctx, record.ID)
		return nil
	}

	s.logger.Info("dispatching reminder", map[string]interface{}{
		"recordId":   record.ID,
		"eventId":    record.EventID,
		"tier":       string(audience.Tier),
		"recipients": len(audience.Subscriptions),
	})

	// Fan out, bounded. Dispatch errors are already logged and counted
	// by the dispatcher; swallowing them here is what keeps one bad
	// endpoint from blocking the rest of the audience.
	eg := new(errgroup.Group)
	eg.SetLimit(s.config.MaxInFlight)
	for _, sub := range audience.Subscriptions {
		sub := sub
		eg.Go(func() error {
			_ = s.dispatcher.Dispatch(ctx, sub, audience.Payload)
			return nil
		})
	}
	_ = eg.Wait() // barrier: all sends attempted before the flag flips

	s.markSent(ctx, record.ID)
	return nil
}

// markSent commits the terminal state. On failure the record stays
// pending and is reprocessed next cycle, at the risk of a duplicate
// delivery.
func (s *Scanner) markSent(ctx context.Context, id string) {
	if err := s.notifications.MarkSent(ctx, id); err != nil {
		stdErr := apperrors.NewMarkSentFailedError(id, err)
		s.logger.Error("failed to mark notification sent", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	}
}
