package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MeetingSummary is a summarized sales call.
type MeetingSummary struct {
	ID         string    `json:"id"`
	Transcript string    `json:"transcript,omitempty"`
	Summary    string    `json:"summary"`
	Source     string    `json:"source,omitempty"`
	VectorID   int       `json:"vector_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddMeetingSummary inserts a summary, filling in ID, Source and CreatedAt.
func (s *Store) AddMeetingSummary(ctx context.Context, m *MeetingSummary) error {
	if m.Summary == "" {
		return errors.New("meeting summary text is required")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Source == "" {
		m.Source = "system"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meeting_summaries (id, transcript, summary, source, vector_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Transcript, m.Summary, m.Source, m.VectorID, formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert meeting summary: %w", err)
	}
	return nil
}

// RecentMeetingSummaries returns up to limit summaries, newest first.
func (s *Store) RecentMeetingSummaries(ctx context.Context, limit int) ([]*MeetingSummary, error) {
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transcript, summary, source, vector_id, created_at
		 FROM meeting_summaries ORDER BY created_at DESC, id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*MeetingSummary
	for rows.Next() {
		m := &MeetingSummary{}
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Transcript, &m.Summary, &m.Source, &m.VectorID, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
