package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/model"
)

// HealthChecker is the part of llm.Provider the LLM probe needs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	HasProfile(name string) bool
}

// LLM checks that at least one backend answers and that every pipeline
// profile is served by some backend. A planner without generators can
// only ever apologize, so the probe is critical.
func LLM(p HealthChecker, profiles ...string) Probe {
	if len(profiles) == 0 {
		profiles = llm.Profiles
	}
	return Probe{
		Name:     "LLM Providers",
		Critical: true,
		Timeout:  20 * time.Second,
		Check: func(ctx context.Context) error {
			var missing []string
			for _, name := range profiles {
				if !p.HasProfile(name) {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("no provider serves profiles %v", missing)
			}
			return p.HealthCheck(ctx)
		},
	}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Database checks the plan journal. The journal is optional, so a failure
// only disables recording.
func Database(db Pinger) Probe {
	return Probe{
		Name: "Plan Journal",
		Check: func(ctx context.Context) error {
			if db == nil {
				return errors.New("journal disabled")
			}
			return db.PingContext(ctx)
		},
	}
}

// TemplateChecker reports whether a named template is loaded.
type TemplateChecker interface {
	Has(name string) bool
}

// Prompts checks that every named template is available.
func Prompts(t TemplateChecker, names ...string) Probe {
	return Probe{
		Name:     "Prompt Templates",
		Critical: true,
		Check: func(ctx context.Context) error {
			var missing []string
			for _, n := range names {
				if !t.Has(n) {
					missing = append(missing, n)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing templates %v", missing)
			}
			return nil
		},
	}
}

// Catalog warns when the configured catalog is empty or has stops that can
// never be placed on a route.
func Catalog(challenges []model.Challenge) Probe {
	return Probe{
		Name: "Challenge Catalog",
		Check: func(ctx context.Context) error {
			if len(challenges) == 0 {
				return errors.New("catalog is empty")
			}
			var bad []string
			for _, c := range challenges {
				if len(c.Location) != 2 {
					bad = append(bad, c.ID)
				}
			}
			if len(bad) > 0 {
				return fmt.Errorf("%w: %v", model.ErrBadLocation, bad)
			}
			return nil
		},
	}
}
