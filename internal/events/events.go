// Package events publishes domain lifecycle events. Publishing is best effort:
// failures are logged and counted, never returned to the request.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/schoolhub/common/logging"
	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/models"
)

// Event is the JSON body of every published message.
type Event struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurredAt"`
	Source     string    `json:"source"`
	ActorID    string    `json:"actorId,omitempty"`
	ActorRole  string    `json:"actorRole,omitempty"`
	Data       any       `json:"data"`
}

// Publisher is what handlers depend on.
type Publisher interface {
	Publish(ctx context.Context, subject string, actor *models.Identity, data any)
}

// Bus publishes events through a messaging.Publisher.
type Bus struct {
	pub    messaging.Publisher
	source string
	logger *slog.Logger
	now    func() time.Time
}

// NewBus returns a Bus. A nil pub yields a bus that drops every event.
func NewBus(pub messaging.Publisher, source string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{pub: pub, source: source, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Enabled reports whether events leave the process.
func (b *Bus) Enabled() bool { return b != nil && b.pub != nil }

func (b *Bus) Publish(ctx context.Context, subject string, actor *models.Identity, data any) {
	if !b.Enabled() {
		return
	}

	evt := Event{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Subject:    subject,
		OccurredAt: b.now(),
		Source:     b.source,
		Data:       data,
	}
	if actor != nil {
		evt.ActorID = actor.UserID
		evt.ActorRole = actor.Role.String()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		b.fail(ctx, subject, err)
		return
	}

	msg := &messaging.Message{
		Subject:   subject,
		Data:      body,
		Timestamp: evt.OccurredAt,
		Metadata: map[string]string{
			"Event-Id":     evt.ID,
			"Content-Type": "application/json",
		},
	}
	if err := b.pub.PublishMsg(ctx, msg); err != nil {
		b.fail(ctx, subject, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(subject, "ok").Inc()
}

func (b *Bus) fail(ctx context.Context, subject string, err error) {
	metrics.EventsPublished.WithLabelValues(subject, "error").Inc()
	b.logger.WarnContext(ctx, "failed to publish event",
		slog.String("subject", subject), logging.Error(err))
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, *models.Identity, any) {}

var (
	_ Publisher = (*Bus)(nil)
	_ Publisher = Nop{}
)
