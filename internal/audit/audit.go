// Package audit records HMAC-signed security events. Entries are logged and,
// when a bus is configured, published on the audit subject.
package audit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/events"
	"github.com/telhawk-systems/schoolhub/internal/models"
)

const (
	ActionLogin           = "login"
	ActionUserCreate      = "user.create"
	ActionShortTokenIssue = "token.short.issue"
	ActionStudentTransfer = "student.transfer"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Action       string         `json:"action"`
	ActorID      string         `json:"actorId,omitempty"`
	ActorRole    string         `json:"actorRole,omitempty"`
	ResourceType string         `json:"resourceType,omitempty"`
	ResourceID   string         `json:"resourceId,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	Result       string         `json:"result"`
	Reason       string         `json:"reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Signature    string         `json:"signature"`
}

// Recorder is what handlers depend on.
type Recorder interface {
	Record(ctx context.Context, e Entry) *Entry
}

type Logger struct {
	secretKey []byte
	bus       events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewLogger returns a Logger. bus may be nil.
func NewLogger(secretKey string, bus events.Publisher, logger *slog.Logger) *Logger {
	if bus == nil {
		bus = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		secretKey: []byte(secretKey),
		bus:       bus,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record stamps, signs, logs and publishes e.
func (l *Logger) Record(ctx context.Context, e Entry) *Entry {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	e.Signature = l.sign(&e)

	l.logger.InfoContext(ctx, "audit event",
		slog.Group("audit",
			slog.String("id", e.ID),
			slog.String("action", e.Action),
			slog.String("actor_id", e.ActorID),
			slog.String("resource_type", e.ResourceType),
			slog.String("resource_id", e.ResourceID),
			slog.String("ip", e.IPAddress),
			slog.String("result", e.Result),
			slog.String("reason", e.Reason),
		),
	)

	var actor *models.Identity
	if e.ActorID != "" {
		actor = &models.Identity{UserID: e.ActorID, Role: models.Role(e.ActorRole)}
	}
	l.bus.Publish(ctx, messaging.SubjectAudit, actor, e)

	return &e
}

// sign covers every field but the signature. Metadata is JSON-encoded,
// which orders map keys.
func (l *Logger) sign(e *Entry) string {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		metadata = []byte("!unencodable")
	}
	payload := strings.Join([]string{
		e.ID,
		e.Timestamp.Format(time.RFC3339Nano),
		e.Action,
		e.ActorID,
		e.ActorRole,
		e.ResourceType,
		e.ResourceID,
		e.IPAddress,
		e.Result,
		e.Reason,
		string(metadata),
	}, "|")
	h := hmac.New(sha256.New, l.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether e carries a valid signature for this key.
func (l *Logger) Verify(e *Entry) bool {
	expected := l.sign(e)
	return hmac.Equal([]byte(expected), []byte(e.Signature))
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(_ context.Context, e Entry) *Entry { return &e }

var (
	_ Recorder = (*Logger)(nil)
	_ Recorder = Nop{}
)
