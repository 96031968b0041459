package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective customer.
type Lead struct {
	ID              string         `json:"id"`
	CompanyName     string         `json:"company_name"`
	Industry        string         `json:"industry,omitempty"`
	SizeRange       string         `json:"size_range,omitempty"`
	PainPoints      string         `json:"pain_points,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	Source          string         `json:"source,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"`

	// VectorID is the lead's record id in the vector index.
	VectorID  int       `json:"vector_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AddLead inserts a lead, filling in ID, Source and CreatedAt when empty.
func (s *Store) AddLead(ctx context.Context, l *Lead) error {
	if l.CompanyName == "" {
		return errors.New("lead company name is required")
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Source == "" {
		l.Source = "system"
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	details, err := json.Marshal(l.Details)
	if err != nil {
		return fmt.Errorf("encode lead details: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, company_name, industry, size_range, pain_points, details, source, confidence_score, vector_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CompanyName, l.Industry, l.SizeRange, l.PainPoints, string(details),
		l.Source, l.ConfidenceScore, l.VectorID, formatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetLead returns the lead with id.
func (s *Store) GetLead(ctx context.Context, id string) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectLeads+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	return leads[0], nil
}

// LeadByVectorID returns the lead indexed under a vector record id.
func (s *Store) LeadByVectorID(ctx context.Context, vectorID int) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectLeads+` WHERE vector_id = ?`, vectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, fmt.Errorf("lead with vector %d: %w", vectorID, ErrNotFound)
	}
	return leads[0], nil
}

// ListLeads returns all leads, newest first.
func (s *Store) ListLeads(ctx context.Context) ([]*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectLeads+` ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLeads(rows)
}

const selectLeads = `SELECT id, company_name, industry, size_range, pain_points, details, source, confidence_score, vector_id, created_at FROM leads`

func scanLeads(rows *sql.Rows) ([]*Lead, error) {
	var leads []*Lead
	for rows.Next() {
		l := &Lead{}
		var details, createdAt string
		if err := rows.Scan(&l.ID, &l.CompanyName, &l.Industry, &l.SizeRange, &l.PainPoints,
			&details, &l.Source, &l.ConfidenceScore, &l.VectorID, &createdAt); err != nil {
			return nil, err
		}
		if details != "" && details != "null" {
			if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
				return nil, fmt.Errorf("decode lead details: %w", err)
			}
		}
		var err error
		if l.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
