package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/inbox"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// ErrTerminate marks a delivery that must never be redelivered.
var ErrTerminate = errors.New("terminate delivery")

type SubscriberConfig struct {
	Stream        string
	Durable       string
	FilterSubject string
	AckWait       time.Duration
	MaxDeliver    int
	MaxInFlight   int
	NakDelay      time.Duration
}

type Subscriber struct {
	js     JetStream
	cfg    SubscriberConfig
	logger *logging.Logger
}

func (c *Client) Subscriber(cfg SubscriberConfig) *Subscriber {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = 10
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	if cfg.NakDelay <= 0 {
		cfg.NakDelay = 5 * time.Second
	}
	return &Subscriber{js: c.js, cfg: cfg, logger: c.logger}
}

// Run consumes from a durable pull consumer until ctx is done. Each
// delivery is handed to handle; nil acks, ErrTerminate terms, and any other
// error naks with a delay.
func (s *Subscriber) Run(ctx context.Context, handle func(ctx context.Context, msg inbox.Message) error) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       s.cfg.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.cfg.AckWait,
		MaxDeliver:    s.cfg.MaxDeliver,
		FilterSubject: s.cfg.FilterSubject,
	})
	if err != nil {
		return fmt.Errorf("create or update consumer %s: %w", s.cfg.Durable, err)
	}

	msgs := make(chan Msg, s.cfg.MaxInFlight)
	sub, err := consumer.Consume(func(msg Msg) {
		select {
		case msgs <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.cfg.Durable, err)
	}
	defer sub.Stop()

	s.logger.Info("jetstream subscriber started",
		"stream", s.cfg.Stream,
		"consumer", s.cfg.Durable,
		"filter", s.cfg.FilterSubject,
	)

	workers := pool.New().WithMaxGoroutines(s.cfg.MaxInFlight)
	defer workers.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			workers.Go(func() {
				s.dispatch(ctx, msg, handle)
			})
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, msg Msg, handle func(ctx context.Context, msg inbox.Message) error) {
	in := toInboxMessage(s.cfg.Stream, msg)
	err := handle(ctx, in)
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			s.logger.WarnContext(ctx, "ack message failed", "message_id", in.ID, "error", ackErr)
		}
	case errors.Is(err, ErrTerminate):
		s.logger.WarnContext(ctx, "terminating message", "message_id", in.ID, "subject", in.Subject, "error", err)
		if termErr := msg.Term(); termErr != nil {
			s.logger.WarnContext(ctx, "term message failed", "message_id", in.ID, "error", termErr)
		}
	default:
		s.logger.WarnContext(ctx, "message handling failed, will retry", "message_id", in.ID, "subject", in.Subject, "error", err)
		if nakErr := msg.NakWithDelay(s.cfg.NakDelay); nakErr != nil {
			s.logger.WarnContext(ctx, "nak message failed", "message_id", in.ID, "error", nakErr)
		}
	}
}

// toInboxMessage derives a stable uuid message id. The Nats-Msg-Id header is
// preferred; otherwise the stream sequence keeps redeliveries on the same id.
func toInboxMessage(stream string, msg Msg) inbox.Message {
	headers := map[string]string{}
	for k := range msg.Headers() {
		headers[k] = msg.Headers().Get(k)
	}

	raw := msg.Headers().Get(nats.MsgIdHdr)
	if raw == "" {
		if meta, err := msg.Metadata(); err == nil && meta != nil {
			raw = stream + ":" + strconv.FormatUint(meta.Sequence.Stream, 10)
		}
	}

	messageID := raw
	if raw == "" {
		messageID = uuid.NewString()
	} else if _, err := uuid.Parse(raw); err != nil {
		messageID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw)).String()
	}

	return inbox.Message{
		ID:      messageID,
		Subject: msg.Subject(),
		Data:    msg.Data(),
		Headers: headers,
	}
}
