package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mirrah-art/custody-ledger/internal/domain"
	"github.com/mirrah-art/custody-ledger/internal/logger"
	"github.com/mirrah-art/custody-ledger/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	streamName string
}

// NewPublisher connects to NATS and ensures the ledger event stream exists
func NewPublisher(ctx context.Context, cfg Config) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.StreamName + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return &publisher{nc: nc, js: js, streamName: cfg.StreamName}, nil
}

// PublishEvent publishes a committed ledger event
func (p *publisher) PublishEvent(ctx context.Context, event *domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.buildSubject(event)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Debug("Published ledger event",
		zap.String("subject", subject),
		zap.String("event_id", event.ID))
	return nil
}

// buildSubject routes events by type, with asset-level events keyed by id:
// <stream>.<type>[.<asset_id>]
func (p *publisher) buildSubject(event *domain.LedgerEvent) string {
	if event.AssetID != nil {
		return fmt.Sprintf("%s.%s.%d", p.streamName, event.Type, *event.AssetID)
	}
	return fmt.Sprintf("%s.%s", p.streamName, event.Type)
}

// Close drains in-flight messages and closes the connection
func (p *publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.Error(err, zap.String("message", "Failed to drain NATS connection"))
	}
}
