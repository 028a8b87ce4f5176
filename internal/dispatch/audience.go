// internal/dispatch/audience.go
package dispatch

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/FreakyLetsFail/NKalendar/internal/common/errors"
	"github.com/FreakyLetsFail/NKalendar/internal/common/logger"
	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// Tier names one lead-time window with its own subscriber population
// and message template.
type Tier string

const (
	TierFourteenDay Tier = "14-day"
	TierSevenDay    Tier = "7-day"
	TierOneDay      Tier = "1-day"
	TierNone        Tier = "none"
)

// leadDayTolerance absorbs scheduler jitter: the scan may fire a few
// minutes after notify_at and the record must still classify.
const leadDayTolerance = 0.1

const secondsPerDay = 86400

// GlobalSubscriptionSource supplies the global opt-in pool.
type GlobalSubscriptionSource interface {
	All(ctx context.Context) ([]models.Subscription, error)
}

// RegistrantSubscriptionSource supplies the subscriptions of one
// event's registrants.
type RegistrantSubscriptionSource interface {
	SubscribedForEvent(ctx context.Context, eventID string) ([]models.Subscription, error)
}

// Audience is the resolved delivery plan for one due record.
type Audience struct {
	Tier          Tier
	Payload       models.PushPayload
	Subscriptions []models.Subscription
}

// Resolver maps a due reminder to the subscription set that must
// receive it and to the payload text. Classification is pure; the only
// I/O is the read of the matching pool.
type Resolver struct {
	global      GlobalSubscriptionSource
	registrants RegistrantSubscriptionSource
	displayZone *time.Location
	logger      logger.Logger
}

func NewResolver(global GlobalSubscriptionSource, registrants RegistrantSubscriptionSource, displayZone *time.Location, log logger.Logger) *Resolver {
	if displayZone == nil {
		displayZone = time.UTC
	}
	return &Resolver{
		global:      global,
		registrants: registrants,
		displayZone: displayZone,
		logger:      log.WithFields(map[string]interface{}{"component": "audience"}),
	}
}

// LeadDays computes the interval between a reminder's trigger time and
// its event's start as a floating-point day count.
func LeadDays(d models.DueNotification) float64 {
	return d.EventStartTime.Sub(d.NotifyAt).Seconds() / secondsPerDay
}

// ClassifyTier evaluates the windows top to bottom and stops at the
// first match, so an overlap (impossible with non-overlapping windows,
// but guarded anyway) resolves to the earliest-listed tier.
//
// Records are scheduled one per tier at 14, 7 and 1 days before the
// event starts, so the day-of reminder arrives with a lead of roughly
// one day. A lead of roughly zero (notify_at at the start itself) is
// accepted into the same tier for records scheduled that way.
func ClassifyTier(leadDays float64) Tier {
	switch {
	case math.Abs(leadDays-14) < leadDayTolerance:
		return TierFourteenDay
	case math.Abs(leadDays-7) < leadDayTolerance:
		return TierSevenDay
	case math.Abs(leadDays-1) < leadDayTolerance, math.Abs(leadDays) < leadDayTolerance:
		return TierOneDay
	default:
		return TierNone
	}
}

// Resolve classifies the record and loads the matching pool. A TierNone
// result carries an empty audience and no payload; the caller still
// marks the record sent so it cannot loop forever.
func (r *Resolver) Resolve(ctx context.Context, due models.DueNotification) (Audience, error) {
	leadDays := LeadDays(due)
	tier := ClassifyTier(leadDays)

	switch tier {
	case TierFourteenDay, TierSevenDay:
		subs, err := r.global.All(ctx)
		if err != nil {
			return Audience{}, fmt.Errorf("load global pool: %w", err)
		}
		return Audience{
			Tier:          tier,
			Payload:       r.payload(tier, due),
			Subscriptions: subs,
		}, nil

	case TierOneDay:
		subs, err := r.registrants.SubscribedForEvent(ctx, due.EventID)
		if err != nil {
			return Audience{}, fmt.Errorf("load registrants for event %s: %w", due.EventID, err)
		}
		return Audience{
			Tier:          tier,
			Payload:       r.payload(tier, due),
			Subscriptions: subs,
		}, nil

	default:
		stdErr := apperrors.NewNoAudienceTierError(due.ID, leadDays)
		r.logger.Warn("reminder matches no audience tier", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
			"eventId": due.EventID,
		})
		return Audience{Tier: TierNone}, nil
	}
}

func (r *Resolver) payload(tier Tier, due models.DueNotification) models.PushPayload {
	var title string
	switch tier {
	case TierFourteenDay:
		title = fmt.Sprintf("Reminder: in 14 days is %s", due.EventTitle)
	case TierSevenDay:
		title = fmt.Sprintf("Reminder: in 7 days is %s", due.EventTitle)
	case TierOneDay:
		title = fmt.Sprintf("Reminder: in 1 day is %s", due.EventTitle)
	}

	return models.PushPayload{
		Title: title,
		Body:  fmt.Sprintf("Starts at %s", due.EventStartTime.In(r.displayZone).Format("02.01.2006 15:04")),
	}
}
