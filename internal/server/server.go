// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FreakyLetsFail/NKalendar/internal/common/logger"
	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// ScanRunner runs one due-notification scan pass.
type ScanRunner interface {
	Run(ctx context.Context) (int, error)
}

// SubscriptionWriter persists and removes global pool subscriptions.
type SubscriptionWriter interface {
	Save(ctx context.Context, sub models.Subscription) error
	Remove(ctx context.Context, endpoint string) error
}

// SubscriptionReader supplies the global pool for custom broadcasts.
type SubscriptionReader interface {
	All(ctx context.Context) ([]models.Subscription, error)
}

// RegistrationWriter persists event registrations.
type RegistrationWriter interface {
	Save(ctx context.Context, reg models.EventRegistration) error
}

// Broadcaster delivers one payload to one subscription.
type Broadcaster interface {
	Dispatch(ctx context.Context, sub models.Subscription, payload models.PushPayload) error
}

// Config holds the routes' operational settings.
type Config struct {
	AdminToken string
}

// Server wires the trigger endpoint and the subscription-facing API
// onto one mux alongside health and metrics.
type Server struct {
	config        Config
	scanner       ScanRunner
	subscriptions SubscriptionWriter
	pool          SubscriptionReader
	registrations RegistrationWriter
	broadcaster   Broadcaster
	logger        logger.Logger
}

func New(
	config Config,
	scanner ScanRunner,
	subscriptions SubscriptionWriter,
	pool SubscriptionReader,
	registrations RegistrationWriter,
	broadcaster Broadcaster,
	log logger.Logger,
) *Server {
	return &Server{
		config:        config,
		scanner:       scanner,
		subscriptions: subscriptions,
		pool:          pool,
		registrations: registrations,
		broadcaster:   broadcaster,
		logger:        log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/notify/run", s.handleNotifyRun)
	mux.HandleFunc("/notify/custom", s.handleNotifyCustom)
	mux.HandleFunc("/subscriptions", s.handleSubscriptions)
	mux.HandleFunc("/registrations", s.handleRegistrations)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
