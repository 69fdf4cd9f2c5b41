// Package nats implements the audit sink port using NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/wikifarm/farmd/internal/port/auditsink"
)

const streamName = "FARM_AUDIT"

// subjectPrefix namespaces all audit subjects; the action name is appended,
// e.g. "audit.wiki-created".
const subjectPrefix = "audit."

// publishTimeout bounds how long a fire-and-forget emit may block the caller.
const publishTimeout = 2 * time.Second

// Sink implements auditsink.Sink over NATS JetStream.
type Sink struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the audit stream exists.
func Connect(ctx context.Context, url string) (*Sink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ">"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Sink{nc: nc, js: js}, nil
}

// Emit publishes the event to audit.<action>. Fire-and-forget: failures are
// logged and never surfaced, so an unreachable audit stream cannot fail a
// registry operation.
func (s *Sink) Emit(ctx context.Context, ev auditsink.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("audit event encode failed", "action", ev.Action, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	subject := subjectPrefix + string(ev.Action)
	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		slog.Error("audit publish failed", "subject", subject, "error", err)
	}
}

// Close shuts down the NATS connection.
func (s *Sink) Close() error {
	s.nc.Close()
	return nil
}
