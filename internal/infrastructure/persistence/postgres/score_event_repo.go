// Package postgres implements the PostgreSQL persistence layer for the
// school score service.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ScoreEventRepository implements scoring.Repository for PostgreSQL.
type ScoreEventRepository struct {
	conn *Connection
}

// NewScoreEventRepository creates a new ScoreEventRepository.
func NewScoreEventRepository(conn *Connection) *ScoreEventRepository {
	return &ScoreEventRepository{conn: conn}
}

// AppendBatch inserts the whole batch in one transaction, assigning each
// event a fresh UUID key and letting the database stamp created_at so
// creation order is consistent across writers.
func (r *ScoreEventRepository) AppendBatch(ctx context.Context, events []*scoring.ScoreEvent) (int, error) {
	if len(events) == 0 {
		return 0, scoring.ErrEmptyBatch
	}

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, event := range events {
			event.Key = scoring.EventKey(uuid.NewString())
			batch.Queue(`
				INSERT INTO score_events
				(key, event_date, week, period, grade, class_id, score, note, rater_uid)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING created_at
			`,
				event.Key.String(),
				event.Date,
				string(event.Week),
				string(event.Period),
				int(event.Grade),
				event.ClassID.String(),
				int(event.Score),
				event.Note,
				event.RaterUID,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for _, event := range events {
			if err := br.QueryRow().Scan(&event.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert score event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeError("append batch", err)
	}

	return len(events), nil
}

// Delete removes one event by key. A missing key deletes zero rows, which is
// success: delete is idempotent by contract.
func (r *ScoreEventRepository) Delete(ctx context.Context, key scoring.EventKey) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM score_events WHERE key = $1`, key.String())
	if err != nil {
		return storeError("delete", err)
	}
	return nil
}

// DeleteKeys removes the whole key set in a single statement, so readers see
// the clear all-or-nothing.
func (r *ScoreEventRepository) DeleteKeys(ctx context.Context, keys []scoring.EventKey) error {
	if len(keys) == 0 {
		return nil
	}

	raw := make([]string, 0, len(keys))
	for _, key := range keys {
		raw = append(raw, key.String())
	}

	_, err := r.conn.Exec(ctx, `DELETE FROM score_events WHERE key = ANY($1)`, raw)
	if err != nil {
		return storeError("delete keys", err)
	}
	return nil
}

// ListAll returns the full event collection ordered by creation time
// descending. Key is the deterministic tiebreak for events created in the
// same transaction.
func (r *ScoreEventRepository) ListAll(ctx context.Context) ([]*scoring.ScoreEvent, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT key, event_date, week, period, grade, class_id, score, note, rater_uid, created_at
		FROM score_events
		ORDER BY created_at DESC, key
	`)
	if err != nil {
		return nil, storeError("list all", err)
	}
	defer rows.Close()

	var events []*scoring.ScoreEvent
	for rows.Next() {
		event, err := scanScoreEvent(rows)
		if err != nil {
			return nil, storeError("list all", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list all", err)
	}

	return events, nil
}

// ListKeys returns the keys of every stored event.
func (r *ScoreEventRepository) ListKeys(ctx context.Context) ([]scoring.EventKey, error) {
	rows, err := r.conn.Query(ctx, `SELECT key FROM score_events`)
	if err != nil {
		return nil, storeError("list keys", err)
	}
	defer rows.Close()

	var keys []scoring.EventKey
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storeError("list keys", err)
		}
		keys = append(keys, scoring.EventKey(key))
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list keys", err)
	}

	return keys, nil
}

func scanScoreEvent(rows pgx.Rows) (*scoring.ScoreEvent, error) {
	var (
		event    scoring.ScoreEvent
		key      string
		week     string
		period   string
		grade    int
		classID  string
		score    int
		raterUID string
		date     time.Time
	)

	err := rows.Scan(&key, &date, &week, &period, &grade, &classID, &score, &event.Note, &raterUID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan score event: %w", err)
	}

	event.Key = scoring.EventKey(key)
	event.Date = date
	event.Week = weekcal.WeekID(week)
	event.Period = scoring.Period(period)
	event.Grade = scoring.Grade(grade)
	event.ClassID = scoring.ClassID(classID)
	event.Score = scoring.Score(score)
	event.RaterUID = raterUID

	return &event, nil
}

// storeError maps driver failures onto the domain's store error taxonomy so
// callers can distinguish a privilege rejection from a plain outage.
func storeError(op string, err error) error {
	if IsPermissionDenied(err) {
		return fmt.Errorf("%w: %s: %v", scoring.ErrPermissionDenied, op, err)
	}
	return fmt.Errorf("%w: %s: %v", scoring.ErrStoreUnavailable, op, err)
}
