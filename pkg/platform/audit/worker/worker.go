// Package worker publishes audit outbox rows to Kafka.
//
// The worker polls the audit_outbox table for unpublished rows, produces them
// to the configured topic, and marks them published. Rows are keyed by user
// ID so per-user event order is preserved within a partition.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const batchSize = 100

// Worker drains the audit outbox into Kafka.
type Worker struct {
	db           *sql.DB
	client       *kgo.Client
	topic        string
	pollInterval time.Duration
	logger       *slog.Logger
}

// New constructs an outbox worker. The Kafka client is owned by the caller.
func New(db *sql.DB, client *kgo.Client, topic string, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		db:           db,
		client:       client,
		topic:        topic,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// EnsureTopic creates the outbox topic if it does not exist yet.
// Safe to call on every startup.
func (w *Worker) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(w.client)
	_, err := adm.CreateTopic(ctx, partitions, -1, nil, w.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", w.topic, err)
	}
	return nil
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; rows stay in the outbox until acknowledged.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id      string
	userID  sql.NullString
	payload []byte
}

func (w *Worker) drainOnce(ctx context.Context) error {
	rows, err := w.fetchUnpublished(ctx)
	if err != nil || len(rows) == 0 {
		return err
	}

	for _, row := range rows {
		record := &kgo.Record{
			Topic: w.topic,
			Value: row.payload,
		}
		if row.userID.Valid {
			record.Key = []byte(row.userID.String)
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox row %s: %w", row.id, err)
		}
		if err := w.markPublished(ctx, row.id); err != nil {
			return err
		}
	}

	w.logger.DebugContext(ctx, "audit outbox drained", "rows", len(rows))
	return nil
}

func (w *Worker) fetchUnpublished(ctx context.Context) ([]outboxRow, error) {
	query := `
		SELECT id, user_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rs, err := w.db.QueryContext(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox rows: %w", err)
	}
	defer rs.Close()

	var rows []outboxRow
	for rs.Next() {
		var row outboxRow
		if err := rs.Scan(&row.id, &row.userID, &row.payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

func (w *Worker) markPublished(ctx context.Context, id string) error {
	_, err := w.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	return nil
}
