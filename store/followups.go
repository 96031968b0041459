package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Follow-up statuses.
const (
	StatusPending   = "pending"
	StatusExecuting = "executing"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// FollowUp is a message to send to a lead at a later time.
type FollowUp struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Message   string    `json:"message,omitempty"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// AddFollowUp inserts a pending follow-up, filling in ID and CreatedAt.
func (s *Store) AddFollowUp(ctx context.Context, f *FollowUp) error {
	if f.LeadID == "" {
		return errors.New("follow-up lead id is required")
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	if f.Status == "" {
		f.Status = StatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO follow_ups (id, lead_id, message, due_at, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.LeadID, f.Message, formatTime(f.DueAt), formatTime(f.CreatedAt), f.Status,
	)
	if err != nil {
		return fmt.Errorf("insert follow-up: %w", err)
	}
	return nil
}

// GetFollowUp returns the follow-up with id.
func (s *Store) GetFollowUp(ctx context.Context, id string) (*FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectFollowUps+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanFollowUps(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("follow-up %s: %w", id, ErrNotFound)
	}
	return out[0], nil
}

// PendingFollowUps returns all pending follow-ups, soonest first.
func (s *Store) PendingFollowUps(ctx context.Context) ([]*FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectFollowUps+` WHERE status = ? ORDER BY due_at ASC`, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFollowUps(rows)
}

// DueFollowUps returns pending follow-ups due at or before now.
func (s *Store) DueFollowUps(ctx context.Context, now time.Time) ([]*FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectFollowUps+` WHERE status = ? AND due_at <= ? ORDER BY due_at ASC`,
		StatusPending, formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFollowUps(rows)
}

// UpdateFollowUpStatus sets the status (and optional error message).
func (s *Store) UpdateFollowUpStatus(ctx context.Context, id, status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE follow_ups SET status = ?, error = ? WHERE id = ?`,
		status, errMsg, id,
	)
	return err
}

// ClaimFollowUp moves a pending follow-up to executing. It reports false
// when another worker claimed it first or it was cancelled.
func (s *Store) ClaimFollowUp(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE follow_ups SET status = ? WHERE id = ? AND status = ?`,
		StatusExecuting, id, StatusPending,
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

// CancelFollowUp cancels a pending follow-up.
func (s *Store) CancelFollowUp(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE follow_ups SET status = ? WHERE id = ? AND status = ?`,
		StatusCancelled, id, StatusPending,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("follow-up %s not found or not in pending status: %w", id, ErrNotFound)
	}
	return nil
}

const selectFollowUps = `SELECT id, lead_id, message, due_at, created_at, status, error FROM follow_ups`

func scanFollowUps(rows *sql.Rows) ([]*FollowUp, error) {
	var out []*FollowUp
	for rows.Next() {
		f := &FollowUp{}
		var dueAt, createdAt string
		if err := rows.Scan(&f.ID, &f.LeadID, &f.Message, &dueAt, &createdAt, &f.Status, &f.Error); err != nil {
			return nil, err
		}
		var err error
		if f.DueAt, err = parseTime("due_at", dueAt); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
