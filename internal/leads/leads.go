// Package leads persists visitor contact-interest events and questions the
// assistant could not answer. Append-only: records are written once per
// tool invocation and never updated or deleted.
package leads

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Defaults recorded when the model omits optional lead fields.
const (
	DefaultName  = "Name not provided"
	DefaultNotes = "not provided"
)

// Lead is a recorded visitor contact-interest event.
type Lead struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Gap is a recorded question the assistant could not answer from its
// knowledge base.
type Gap struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats counts recorded leads and knowledge gaps.
type Stats struct {
	TotalLeads int64 `json:"total_leads"`
	TotalGaps  int64 `json:"total_knowledge_gaps"`
}

// Store persists leads and knowledge gaps in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// InsertLead records a lead and returns its id. Empty name and notes get
// placeholder values so the record is always readable.
func (s *Store) InsertLead(ctx context.Context, email, name, notes string) (int64, error) {
	if name == "" {
		name = DefaultName
	}
	if notes == "" {
		notes = DefaultNotes
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (email, name, notes) VALUES (?, ?, ?)`,
		email, name, notes)
	if err != nil {
		return 0, fmt.Errorf("inserting lead: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading lead id: %w", err)
	}

	s.logger.Info("lead recorded", "id", id, "email", email)
	return id, nil
}

// InsertGap records an unanswered question and returns its id.
func (s *Store) InsertGap(ctx context.Context, question string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_gaps (question) VALUES (?)`, question)
	if err != nil {
		return 0, fmt.Errorf("inserting knowledge gap: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading gap id: %w", err)
	}

	s.logger.Info("knowledge gap recorded", "id", id)
	return id, nil
}

// ListLeads returns all leads, newest first.
func (s *Store) ListLeads(ctx context.Context) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, notes, created_at FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.Email, &l.Name, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// ListGaps returns all knowledge gaps, newest first.
func (s *Store) ListGaps(ctx context.Context) ([]Gap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, created_at FROM knowledge_gaps ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge gaps: %w", err)
	}
	defer rows.Close()

	var gaps []Gap
	for rows.Next() {
		var g Gap
		if err := rows.Scan(&g.ID, &g.Question, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning knowledge gap: %w", err)
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// Stats returns record counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM leads`).Scan(&st.TotalLeads); err != nil {
		return Stats{}, fmt.Errorf("counting leads: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM knowledge_gaps`).Scan(&st.TotalGaps); err != nil {
		return Stats{}, fmt.Errorf("counting knowledge gaps: %w", err)
	}
	return st, nil
}
