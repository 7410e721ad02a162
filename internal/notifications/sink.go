package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"discussify/internal/middleware"
	"discussify/internal/models"

	"github.com/google/uuid"
)

// Store is the persistence surface the sink needs.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Sink persists notifications and pushes them to connected clients.
// Persistence failures are returned to the caller; delivery failures are
// counted and swallowed, since the stored row remains fetchable.
type Sink struct {
	store    Store
	notifier *Notifier
}

// NewSink creates a Sink over the given store and notifier.
func NewSink(store Store, notifier *Notifier) *Sink {
	return &Sink{store: store, notifier: notifier}
}

// event is the wire shape pushed over the user's channel.
type event struct {
	EventID string               `json:"event_id"`
	Type    string               `json:"type"`
	Payload *models.Notification `json:"payload"`
}

// Emit stores the notification and publishes it to the recipient's channel.
func (s *Sink) Emit(ctx context.Context, n *models.Notification) error {
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}

	if s.notifier == nil {
		return nil
	}

	payload, err := json.Marshal(event{
		EventID: uuid.NewString(),
		Type:    "notification",
		Payload: n,
	})
	if err != nil {
		middleware.NotificationEmitFailures.Inc()
		slog.WarnContext(ctx, "failed to encode notification event",
			slog.Uint64("user_id", uint64(n.UserID)),
			slog.String("error", err.Error()))
		return nil
	}

	if err := s.notifier.PublishUser(ctx, n.UserID, string(payload)); err != nil {
		middleware.NotificationEmitFailures.Inc()
		slog.WarnContext(ctx, "failed to publish notification event",
			slog.Uint64("user_id", uint64(n.UserID)),
			slog.String("error", err.Error()))
	}
	return nil
}
