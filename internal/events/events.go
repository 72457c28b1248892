package events

import (
	"context"
	"encoding/json"
	"fmt"
	"osu-tracker/internal/config"
	"osu-tracker/internal/domain"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const TypeSnapshotAppended = "snapshot.appended"

type SnapshotAppended struct {
	Type       string              `json:"type"`
	ChatUserID string              `json:"chatUserId"`
	Snapshot   domain.StatSnapshot `json:"snapshot"`
	At         time.Time           `json:"at"`
}

func NewSnapshotAppended(chatUserID string, snap domain.StatSnapshot) SnapshotAppended {
	return SnapshotAppended{
		Type:       TypeSnapshotAppended,
		ChatUserID: chatUserID,
		Snapshot:   snap,
		At:         time.Now().UTC(),
	}
}

type Publisher interface {
	PublishSnapshot(ctx context.Context, ev SnapshotAppended) error
	Close() error
}

// New connects to NATS when NATS_URL is set and returns a no-op publisher
// otherwise.
func New(cfg *config.Config, logger zerolog.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info().Msg("NATS_URL not set, snapshot events disabled")
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
}

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  zerolog.Logger
}

func NewNATSPublisher(url, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("osu-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info().Str("subject", subject).Msg("nats publisher connected")
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

func (p *NATSPublisher) PublishSnapshot(ctx context.Context, ev SnapshotAppended) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

type NopPublisher struct{}

func (NopPublisher) PublishSnapshot(context.Context, SnapshotAppended) error { return nil }

func (NopPublisher) Close() error { return nil }
