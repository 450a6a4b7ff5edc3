package api

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hkexplorer/pkg/db"
	"hkexplorer/pkg/model"
	"hkexplorer/pkg/planner"
	"hkexplorer/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePlanner answers every request with a one-stop route and remembers what it saw.
type fakePlanner struct {
	mu    sync.Mutex
	seen  []model.PlanRequest
	count int
}

func (f *fakePlanner) Run(ctx context.Context, req model.PlanRequest) planner.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, req)
	f.count++

	if len(req.Challenges) == 0 {
		return planner.Result{
			RequestID:      "req-empty",
			Outcome:        planner.OutcomeEmptyCatalog,
			WorkflowResult: model.WorkflowResult{Response: "No challenges right now."},
		}
	}

	c := req.Challenges[0]
	stop, err := model.NewRouteChallenge(c.ID, c.Title, c.Type, c.Location, c.ExpectedDuration, "")
	if err != nil {
		panic(err)
	}
	r, err := model.NewRoute([]model.RouteChallenge{stop}, "1h", "15m")
	if err != nil {
		panic(err)
	}
	return planner.Result{
		RequestID:      fmt.Sprintf("req-%d", f.count),
		Outcome:        planner.OutcomeFallback,
		WorkflowResult: model.WorkflowResult{Response: "Try " + c.Title, Route: r},
	}
}

func (f *fakePlanner) last() model.PlanRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1]
}

type failingJournal struct{}

func (failingJournal) SavePlan(ctx context.Context, p *store.Plan) error {
	return errors.New("disk full")
}

func (failingJournal) GetPlan(ctx context.Context, id string) (*store.Plan, error) {
	return nil, store.ErrPlanNotFound
}

func (failingJournal) ListRecentPlans(ctx context.Context, limit int) ([]*store.Plan, error) {
	return nil, errors.New("disk full")
}

func testCatalog() []model.Challenge {
	return []model.Challenge{
		{
			ID:               "HK_001",
			Title:            "Star Ferry Sunset",
			Type:             model.CategoryPhoto,
			Difficulty:       model.DifficultyEasy,
			ExpectedDuration: "01:00:00",
			Location:         []string{"22.293° N", "114.168° E"},
		},
		{
			ID:               "HK_002",
			Title:            "Dai Pai Dong Crawl",
			Type:             model.CategoryFood,
			Difficulty:       model.DifficultyEasy,
			ExpectedDuration: "01:30:00",
			Location:         []string{"22.283° N", "114.155° E"},
		},
	}
}

func newTestJournal(t *testing.T) *store.SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	t.Cleanup(func() { st.Close() })
	return st
}
