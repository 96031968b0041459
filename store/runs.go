package store

import (
	"context"
	"fmt"
	"time"

	"github.com/becomeliminal/salesdesk/engine"
)

// TaskRun is the audit record of one orchestrated task.
type TaskRun struct {
	RequestID  string    `json:"request_id"`
	TaskType   string    `json:"task_type,omitempty"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// LogRun records a finished envelope. It satisfies engine.AuditLogger.
func (s *Store) LogRun(ctx context.Context, env *engine.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO task_runs (request_id, task_type, status, message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		env.Metadata.RequestID, string(env.TaskType), string(env.Status), env.Message,
		env.Metadata.DurationMS, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert task run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit task runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*TaskRun, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, task_type, status, message, duration_ms, created_at
		 FROM task_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TaskRun
	for rows.Next() {
		r := &TaskRun{}
		var createdAt string
		if err := rows.Scan(&r.RequestID, &r.TaskType, &r.Status, &r.Message, &r.DurationMS, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
