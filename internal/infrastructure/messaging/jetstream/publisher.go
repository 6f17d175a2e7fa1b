package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

type Config struct {
	URL            string
	ConnectionName string
	MaxReconnects  int
	ReconnectWait  time.Duration
	// EventsStream holds outbox events, DocumentsStream holds inbound documents.
	EventsStream    string
	EventsSubjects  []string
	DocumentsStream string
}

// Client owns the connection shared by the publisher and subscribers.
type Client struct {
	nc     NatsConn
	js     JetStream
	logger *logging.Logger
}

func Dial(cfg Config, connector Connector, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from nats", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, js, err := connector.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats and create jetstream: %w", err)
	}
	return &Client{nc: nc, js: js, logger: logger}, nil
}

func NewClient(nc NatsConn, js JetStream, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{nc: nc, js: js, logger: logger}
}

// EnsureStream creates or updates a stream with a dedupe window so
// redelivered outbox messages with the same id are dropped by the server.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects []string, dedupe time.Duration) error {
	if dedupe <= 0 {
		dedupe = 2 * time.Minute
	}
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   subjects,
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		Duplicates: dedupe,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", name, err)
	}
	return nil
}

// Publish sends one message with msgID as the JetStream dedupe key.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, msgID string, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	ack, err := c.js.PublishMsg(ctx, msg, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if ack != nil && ack.Duplicate {
		c.logger.DebugContext(ctx, "broker dropped duplicate message", "subject", subject, "message_id", msgID)
	}
	return nil
}

func (c *Client) Close() {
	if c.nc == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		c.logger.Warn("drain nats connection", "error", err)
		c.nc.Close()
	}
}
