package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

const (
	defaultChunkSize     = 256
	defaultWorkers       = 4
	defaultMaxStatesTick = 512
)

type RelayConfig struct {
	SubjectPrefix string
	Workers       int
	ChunkSize     int
	// MaxStatesPerRun bounds how many outbox states one RunOnce drains.
	MaxStatesPerRun int
}

// RunStats reports what one relay pass did.
type RunStats struct {
	Claimed   int
	Published int
	Failed    int
}

// Relay moves committed outbox messages to the broker.
type Relay struct {
	db        *sqlx.DB
	publisher messaging.Publisher
	cfg       RelayConfig
	logger    *logging.Logger
	now       func() time.Time
}

func NewRelay(db *sqlx.DB, publisher messaging.Publisher, cfg RelayConfig, logger *logging.Logger) *Relay {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.MaxStatesPerRun <= 0 {
		cfg.MaxStatesPerRun = defaultMaxStatesTick
	}
	cfg.SubjectPrefix = strings.Trim(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{db: db, publisher: publisher, cfg: cfg, logger: logger, now: time.Now}
}

// Subject returns the broker subject for a message type.
func (r *Relay) Subject(messageType string) string {
	if r.cfg.SubjectPrefix == "" {
		return messageType
	}
	return r.cfg.SubjectPrefix + "." + messageType
}

// RunOnce drains undelivered outbox states using a bounded worker pool.
// Each state is claimed and relayed in its own transaction.
func (r *Relay) RunOnce(ctx context.Context) (RunStats, error) {
	pool, err := ants.NewPool(r.cfg.Workers)
	if err != nil {
		return RunStats{}, fmt.Errorf("create relay worker pool: %w", err)
	}
	defer pool.Release()

	var (
		claimed   atomic.Int64
		published atomic.Int64
		failed    atomic.Int64
		budget    atomic.Int64
		wg        sync.WaitGroup
	)
	budget.Store(int64(r.cfg.MaxStatesPerRun))

	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			for budget.Add(-1) >= 0 {
				if ctx.Err() != nil {
					return
				}
				ok, sent, err := r.relayNext(ctx)
				if err != nil {
					failed.Add(1)
					r.logger.WarnContext(ctx, "relay outbox state failed", "error", err)
					return
				}
				if !ok {
					return
				}
				claimed.Add(1)
				published.Add(int64(sent))
			}
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			r.logger.WarnContext(ctx, "submit relay worker failed", "error", submitErr)
		}
	}
	wg.Wait()

	stats := RunStats{
		Claimed:   int(claimed.Load()),
		Published: int(published.Load()),
		Failed:    int(failed.Load()),
	}
	if stats.Claimed > 0 || stats.Failed > 0 {
		r.logger.InfoContext(ctx, "outbox relay pass finished",
			"claimed", stats.Claimed,
			"published", stats.Published,
			"failed", stats.Failed,
		)
	}
	return stats, ctx.Err()
}

// Run calls RunOnce every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// relayNext claims the oldest undelivered state and publishes its messages.
// ok is false when nothing is left to claim.
func (r *Relay) relayNext(ctx context.Context) (ok bool, sent int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin relay tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := qb.Select("*").From("outbox_state").
		Where(qb.IsNull("delivered")).
		OrderBy("created").
		Limit(1).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSQL()
	if err != nil {
		return false, 0, fmt.Errorf("build claim outbox state query: %w", err)
	}

	var state stateTableModel
	if err := tx.GetContext(ctx, &state, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("claim outbox state: %w", err)
	}

	last := int64(0)
	if state.LastSequenceNumber.Valid {
		last = state.LastSequenceNumber.Int64
	}
	for {
		batch, err := r.loadChunk(ctx, tx, state.OutboxID, last)
		if err != nil {
			return false, sent, err
		}
		for _, msg := range batch {
			if err := r.publish(ctx, msg); err != nil {
				return false, sent, fmt.Errorf("publish outbox %s message %s: %w", state.OutboxID, msg.MessageID, err)
			}
			last = msg.SequenceNumber
			sent++
			if err := r.advance(ctx, tx, state.OutboxID, last); err != nil {
				return false, sent, err
			}
		}
		if len(batch) < r.cfg.ChunkSize {
			break
		}
	}

	if err := r.complete(ctx, tx, state.OutboxID); err != nil {
		return false, sent, err
	}
	if err := tx.Commit(); err != nil {
		return false, sent, fmt.Errorf("commit relay tx: %w", err)
	}
	return true, sent, nil
}

func (r *Relay) loadChunk(ctx context.Context, tx *sqlx.Tx, outboxID string, after int64) ([]messageTableModel, error) {
	query, args, err := qb.Select("sequence_number", "outbox_id", "message_id", "content_type", "message_type",
		"body", "headers", "conversation_id", "correlation_id", "sent_time").
		From("outbox_message").
		Where(qb.Eq("outbox_id", outboxID), qb.Expr("sequence_number > ?", after)).
		OrderBy("sequence_number").
		Limit(r.cfg.ChunkSize).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select outbox messages query: %w", err)
	}
	var rows []messageTableModel
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select outbox messages: %w", err)
	}
	return rows, nil
}

func (r *Relay) publish(ctx context.Context, msg messageTableModel) error {
	headers := map[string]string{}
	if msg.Headers.Valid && msg.Headers.String != "" {
		if err := sonic.UnmarshalString(msg.Headers.String, &headers); err != nil {
			return fmt.Errorf("decode headers: %w", err)
		}
	}
	headers["Content-Type"] = msg.ContentType
	if msg.CorrelationID.Valid {
		headers[HeaderCorrelationID] = msg.CorrelationID.String
	}
	return r.publisher.Publish(ctx, r.Subject(msg.MessageType), []byte(msg.Body), msg.MessageID, headers)
}

func (r *Relay) advance(ctx context.Context, tx *sqlx.Tx, outboxID string, seq int64) error {
	query, args, err := qb.Update("outbox_state").
		Set("last_sequence_number", seq).
		Where(qb.Eq("outbox_id", outboxID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build advance outbox state query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("advance outbox state: %w", err)
	}
	return nil
}

func (r *Relay) complete(ctx context.Context, tx *sqlx.Tx, outboxID string) error {
	query, args, err := qb.DeleteFrom("outbox_message").Where(qb.Eq("outbox_id", outboxID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete outbox messages query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete outbox messages: %w", err)
	}

	query, args, err = qb.Update("outbox_state").
		Set("delivered", r.now().UTC()).
		Where(qb.Eq("outbox_id", outboxID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark outbox delivered query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark outbox delivered: %w", err)
	}
	return nil
}

// Stats reports pending work for health checks.
func (r *Relay) Stats(ctx context.Context) (messaging.OutboxStats, error) {
	var row struct {
		PendingStates int        `db:"pending_states"`
		Oldest        *time.Time `db:"oldest"`
	}
	query, args, err := qb.Select("COUNT(*) AS pending_states", "MIN(created) AS oldest").
		From("outbox_state").
		Where(qb.IsNull("delivered")).
		ToSQL()
	if err != nil {
		return messaging.OutboxStats{}, fmt.Errorf("build outbox stats query: %w", err)
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return messaging.OutboxStats{}, fmt.Errorf("select outbox stats: %w", err)
	}

	var pendingMessages int
	query, args, err = qb.Select("COUNT(*)").From("outbox_message").Where(qb.Expr("outbox_id IS NOT NULL")).ToSQL()
	if err != nil {
		return messaging.OutboxStats{}, fmt.Errorf("build outbox message count query: %w", err)
	}
	if err := r.db.GetContext(ctx, &pendingMessages, query, args...); err != nil {
		return messaging.OutboxStats{}, fmt.Errorf("count outbox messages: %w", err)
	}

	stats := messaging.OutboxStats{PendingStates: row.PendingStates, PendingMessages: pendingMessages}
	if row.Oldest != nil {
		stats.OldestPendingAge = r.now().Sub(*row.Oldest)
	}
	return stats, nil
}
