package store

import (
	"context"
	"errors"
	"time"

	"hkexplorer/pkg/model"
)

// ErrPlanNotFound is returned when no journaled plan has the requested id.
var ErrPlanNotFound = errors.New("plan not found")

// Plan is one journaled planning request and its answer.
type Plan struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	Response  string       `json:"response"`
	Route     *model.Route `json:"route"`
	Fallback  bool         `json:"fallback"`
	Outcome   string       `json:"outcome,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// PlanStore handles the plan journal.
type PlanStore interface {
	SavePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListRecentPlans(ctx context.Context, limit int) ([]*Plan, error)
}
