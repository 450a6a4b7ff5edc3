package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hkexplorer/pkg/db"
	"hkexplorer/pkg/model"
)

// Store defines the repository interface.
type Store interface {
	PlanStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SavePlan inserts or replaces a plan. An empty ID gets a fresh UUID and a
// zero CreatedAt is set to now; both are written back to p.
func (s *SQLiteStore) SavePlan(ctx context.Context, p *Plan) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var route sql.NullString
	if p.Route != nil {
		data, err := json.Marshal(p.Route)
		if err != nil {
			return fmt.Errorf("failed to encode route: %w", err)
		}
		route = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT OR REPLACE INTO plans (id, message, response, route, fallback, outcome, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Message, p.Response, route, p.Fallback, p.Outcome, p.CreatedAt)
	return err
}

// GetPlan returns the plan with the given id or ErrPlanNotFound.
func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, message, response, route, fallback, outcome, created_at FROM plans WHERE id = ?`, id)

	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListRecentPlans returns up to limit plans, newest first.
func (s *SQLiteStore) ListRecentPlans(ctx context.Context, limit int) ([]*Plan, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, response, route, fallback, outcome, created_at FROM plans ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*Plan, error) {
	var p Plan
	var route, outcome sql.NullString
	if err := row.Scan(&p.ID, &p.Message, &p.Response, &route, &p.Fallback, &outcome, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Outcome = outcome.String

	if route.Valid && route.String != "" {
		var r model.Route
		if err := json.Unmarshal([]byte(route.String), &r); err != nil {
			return nil, fmt.Errorf("plan %s: corrupt route: %w", p.ID, err)
		}
		p.Route = &r
	}
	return &p, nil
}
