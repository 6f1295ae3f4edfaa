package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/group-guardian/internal/domain"
)

// QueueRepo implements queue.Repository against PostgreSQL.
type QueueRepo struct{ db *sql.DB }

// NewQueueRepo creates a Postgres-backed offline queue repository.
func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{db: db} }

func (r *QueueRepo) Insert(ctx context.Context, req domain.QueuedRequest) error {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("encode queue payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO guardian_request_queue (request_id, kind, payload, created_at, retry_count)
		VALUES ($1, $2, $3, NOW(), 0)
	`, req.RequestID, string(req.Kind), payload)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

// Oldest returns up to limit items in FIFO order by creation time.
func (r *QueueRepo) Oldest(ctx context.Context, limit int) ([]domain.QueuedRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT request_id, kind, payload, created_at, retry_count
		FROM guardian_request_queue
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch queue items: %w", err)
	}
	defer rows.Close()

	var out []domain.QueuedRequest
	for rows.Next() {
		var q domain.QueuedRequest
		var kind string
		var payload []byte
		if err := rows.Scan(&q.RequestID, &kind, &payload, &q.CreatedAt, &q.RetryCount); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		q.Kind = domain.RequestKind(kind)
		if err := json.Unmarshal(payload, &q.Payload); err != nil {
			return nil, fmt.Errorf("decode queue payload %s: %w", q.RequestID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *QueueRepo) Delete(ctx context.Context, requestID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM guardian_request_queue WHERE request_id = $1`, requestID,
	); err != nil {
		return fmt.Errorf("delete queue item: %w", err)
	}
	return nil
}

func (r *QueueRepo) IncrementRetry(ctx context.Context, requestID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE guardian_request_queue SET retry_count = retry_count + 1 WHERE request_id = $1`,
		requestID,
	); err != nil {
		return fmt.Errorf("increment queue retry: %w", err)
	}
	return nil
}

func (r *QueueRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guardian_request_queue`).Scan(&n)
	return n, err
}
