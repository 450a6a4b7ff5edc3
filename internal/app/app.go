// Package app wires configuration into a ready-to-run planning pipeline.
// Both the server and the command line tool build their planner here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"hkexplorer/pkg/catalog"
	"hkexplorer/pkg/config"
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/llm/factory"
	"hkexplorer/pkg/llm/failover"
	"hkexplorer/pkg/llm/prompts"
	"hkexplorer/pkg/model"
	"hkexplorer/pkg/planner"
	"hkexplorer/pkg/probe"
	"hkexplorer/pkg/request"
	"hkexplorer/pkg/route"
	"hkexplorer/pkg/tracker"
)

// Components are the collaborators built from a Config.
type Components struct {
	LLM     *failover.Provider
	Prompts *prompts.Manager
	Catalog []model.Challenge
	Planner *planner.Orchestrator
	Tracker *tracker.Tracker
}

// Build creates the LLM chain, prompt manager, catalog and orchestrator.
func Build(cfg *config.Config, tr *tracker.Tracker) (*Components, error) {
	if tr == nil {
		tr = tracker.New()
	}
	rc := request.New(cfg.Client)

	llmProv, err := factory.NewProvider(cfg.LLM, cfg.Log.LLM.Path, rc, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM providers: %w", err)
	}

	promptMgr, err := prompts.NewManager(cfg.Prompts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	challenges, err := LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	orch, err := planner.New(planner.Options{
		Planner:  llm.Bind(llmProv, llm.ProfilePlanner),
		Research: llm.Bind(llmProv, llm.ProfileResearch),
		Guide:    llm.Bind(llmProv, llm.ProfileGuide),
		Prompts:  promptMgr,
		Config:   PlannerConfig(cfg.Planner),
		Recorder: tr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build planner: %w", err)
	}

	return &Components{
		LLM:     llmProv,
		Prompts: promptMgr,
		Catalog: challenges,
		Planner: orch,
		Tracker: tr,
	}, nil
}

// PlannerConfig maps the yaml planner settings onto pipeline settings.
func PlannerConfig(pc config.PlannerConfig) planner.Config {
	return planner.Config{
		HistoryTurns: pc.HistoryTurns,
		DefaultHours: pc.DefaultHours,
		Route: route.Options{
			MaxStops:     pc.MaxStops,
			TravelBuffer: pc.TravelBuffer.Std(),
		},
	}
}

// LoadCatalog reads the configured catalog, or the bundled sample when no path is set.
func LoadCatalog(cc config.CatalogConfig) ([]model.Challenge, error) {
	if cc.Path == "" {
		challenges := catalog.Sample()
		slog.Info("Using bundled sample catalog", "challenges", len(challenges))
		return challenges, nil
	}
	challenges, err := catalog.LoadFile(cc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	slog.Info("Loaded catalog", "path", cc.Path, "challenges", len(challenges))
	return challenges, nil
}

// Probes returns the startup checks for c. journal may be nil.
func (c *Components) Probes(journal probe.Pinger) []probe.Probe {
	probes := []probe.Probe{
		probe.LLM(c.LLM),
		probe.Prompts(c.Prompts, prompts.Names...),
		probe.Catalog(c.Catalog),
	}
	if journal != nil {
		probes = append(probes, probe.Database(journal))
	}
	return probes
}

// Verify runs the probes and fails if a critical one failed.
func (c *Components) Verify(ctx context.Context, journal probe.Pinger) error {
	return probe.AnalyzeResults(probe.Run(ctx, c.Probes(journal)))
}
