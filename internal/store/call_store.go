package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/freezerinv/internal/domain"
)

// sqliteTime is the layout of datetime('now').
const sqliteTime = "2006-01-02 15:04:05"

type CallStore struct {
	db *sql.DB
}

func NewCallStore(db *sql.DB) *CallStore {
	return &CallStore{db: db}
}

func (s *CallStore) Record(ctx context.Context, call domain.AnnotationCall) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO annotation_calls (backend, media_kind, media_bytes, outcome, fragments, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, call.Backend, call.MediaKind, call.Bytes, string(call.Outcome), call.Fragments, call.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("failed to record annotation call: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *CallStore) Recent(ctx context.Context, limit int) ([]*domain.AnnotationCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, backend, media_kind, media_bytes, outcome, fragments, duration_ms, created_at
		FROM annotation_calls ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotation calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.AnnotationCall
	for rows.Next() {
		c := &domain.AnnotationCall{}
		var outcome string
		var durationMS int64
		if err := rows.Scan(&c.ID, &c.Backend, &c.MediaKind, &c.Bytes, &outcome, &c.Fragments, &durationMS, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan annotation call: %w", err)
		}
		c.Outcome = domain.CallOutcome(outcome)
		c.Duration = time.Duration(durationMS) * time.Millisecond
		calls = append(calls, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotation calls: %w", err)
	}

	return calls, nil
}

// Summary aggregates the call log per backend, ordered by backend name.
func (s *CallStore) Summary(ctx context.Context) ([]domain.BackendStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT backend,
		       COUNT(*),
		       SUM(outcome = 'text'),
		       SUM(outcome = 'no_text'),
		       SUM(outcome = 'error'),
		       SUM(outcome = 'timeout'),
		       CAST(AVG(duration_ms) AS INTEGER),
		       MAX(created_at)
		FROM annotation_calls
		GROUP BY backend
		ORDER BY backend ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize annotation calls: %w", err)
	}
	defer rows.Close()

	var stats []domain.BackendStats
	for rows.Next() {
		var st domain.BackendStats
		var avgMS int64
		var last string
		if err := rows.Scan(&st.Backend, &st.Calls, &st.WithText, &st.NoText, &st.Errors, &st.Timeouts, &avgMS, &last); err != nil {
			return nil, fmt.Errorf("failed to scan call summary: %w", err)
		}
		st.AvgDuration = time.Duration(avgMS) * time.Millisecond
		if t, err := time.Parse(sqliteTime, last); err == nil {
			st.LastCallAt = t.UTC()
		}
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call summary: %w", err)
	}

	return stats, nil
}
