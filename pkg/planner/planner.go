// Package planner runs the three-stage route planning pipeline: preference
// extraction, candidate selection and narration. The route itself is always
// built by code from the catalog; model output only steers it.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"hkexplorer/pkg/llm/prompts"
	"hkexplorer/pkg/logging"
	"hkexplorer/pkg/model"
	"hkexplorer/pkg/route"
)

// ApologyResponse is returned when the pipeline fails unexpectedly.
const ApologyResponse = "Oops, I got a bit lost there! Could you tell me again what you're looking for? Like how much time you have and what you're into: food, hiking, photography?"

// Outcome describes how a request was answered.
type Outcome string

const (
	OutcomeAssembled    Outcome = "assembled"
	OutcomeFallback     Outcome = "fallback"
	OutcomeGreeting     Outcome = "greeting"
	OutcomeEmptyCatalog Outcome = "empty_catalog"
	OutcomeFailed       Outcome = "failed"
)

// Generator returns free text for a system instruction and a prompt.
// Its output is untrusted and may be empty or malformed.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Renderer renders named prompt templates.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// OutcomeRecorder receives one outcome per request.
type OutcomeRecorder interface {
	TrackOutcome(outcome string)
}

// Config holds pipeline settings.
type Config struct {
	HistoryTurns int
	DefaultHours float64
	Route        route.Options
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		HistoryTurns: 6,
		DefaultHours: model.DefaultAvailableHours,
		Route:        route.Defaults(),
	}
}

// Options are the collaborators of an Orchestrator.
type Options struct {
	Planner  Generator
	Research Generator
	Guide    Generator
	Prompts  Renderer
	Config   Config
	Recorder OutcomeRecorder
}

// Orchestrator runs planning requests. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	planner  Generator
	research Generator
	guide    Generator
	prompts  Renderer
	cfg      Config
	recorder OutcomeRecorder
}

// New validates the options and builds an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Planner == nil || opts.Research == nil || opts.Guide == nil {
		return nil, errors.New("planner, research and guide generators are required")
	}
	if opts.Prompts == nil {
		return nil, errors.New("prompt renderer is required")
	}

	cfg := opts.Config
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 6
	}
	if cfg.DefaultHours <= 0 {
		cfg.DefaultHours = model.DefaultAvailableHours
	}

	return &Orchestrator{
		planner:  opts.Planner,
		research: opts.Research,
		guide:    opts.Guide,
		prompts:  opts.Prompts,
		cfg:      cfg,
		recorder: opts.Recorder,
	}, nil
}

// Result is a WorkflowResult with details about how it was produced.
type Result struct {
	model.WorkflowResult
	RequestID   string
	Outcome     Outcome
	Preferences model.Preferences
	Elapsed     time.Duration
}

// Plan answers one request. It never fails: unexpected errors become a fixed
// apology without a route.
func (o *Orchestrator) Plan(ctx context.Context, req model.PlanRequest) *model.WorkflowResult {
	res := o.Run(ctx, req)
	return &res.WorkflowResult
}

// Run answers one request and reports how the answer was produced.
func (o *Orchestrator) Run(ctx context.Context, req model.PlanRequest) (res Result) {
	start := time.Now()
	res.RequestID = uuid.NewString()
	log := slog.With("request_id", res.RequestID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Planning panicked", "panic", r, "stack", string(debug.Stack()))
			res.WorkflowResult = model.WorkflowResult{Response: ApologyResponse}
			res.Outcome = OutcomeFailed
		}
		res.Elapsed = time.Since(start)
		if o.recorder != nil {
			o.recorder.TrackOutcome(string(res.Outcome))
		}
		log.Info("Planning finished", "outcome", res.Outcome, "stops", len(res.Route.IDs()), "elapsed", res.Elapsed)
	}()

	log.Info("Planning started", "message", truncate(req.Message, 100), "challenges", len(req.Challenges), "history", len(req.History))

	var err error
	switch {
	case IsGreeting(req.Message):
		res.Outcome = OutcomeGreeting
		res.WorkflowResult, err = o.shortCircuit(ctx, req, prompts.GuideGreeting, GreetingResponse)
	case len(req.Challenges) == 0:
		res.Outcome = OutcomeEmptyCatalog
		res.WorkflowResult, err = o.shortCircuit(ctx, req, prompts.GuideEmpty, EmptyCatalogResponse)
	default:
		res, err = o.pipeline(ctx, log, req, res)
	}

	if err != nil {
		log.Error("Planning failed", "error", err)
		res.WorkflowResult = model.WorkflowResult{Response: ApologyResponse}
		res.Outcome = OutcomeFailed
	}
	return res
}

func (o *Orchestrator) pipeline(ctx context.Context, log *slog.Logger, req model.PlanRequest, res Result) (Result, error) {
	log.Debug("State", "state", "PREFERENCE_EXTRACTION")
	prefs, notes := o.extractPreferences(ctx, log, req.Message)
	res.Preferences = prefs

	log.Debug("State", "state", "CANDIDATE_SELECTION", "hours", prefs.AvailableTimeHours, "interests", prefs.Interests, "difficulty", prefs.Difficulty)
	selection := o.selectCandidates(ctx, log, prefs, notes, req.Challenges)

	log.Debug("State", "state", "ROUTE_ASSEMBLY")
	r := o.cfg.Route.FromSelection(selection, req.Challenges)
	res.Outcome = OutcomeAssembled
	if r == nil {
		log.Warn("Selection unusable, building fallback route")
		r = o.cfg.Route.Fallback(prefs, req.Challenges)
		res.Outcome = OutcomeFallback
	}
	if r == nil {
		return res, fmt.Errorf("no route could be built from %d challenges", len(req.Challenges))
	}

	log.Debug("State", "state", "NARRATION", "stops", len(r.Challenges))
	text, err := o.narrate(ctx, req, r)
	if err != nil {
		return res, fmt.Errorf("narration: %w", err)
	}

	res.WorkflowResult = model.WorkflowResult{Response: text, Route: r}
	return res, nil
}

// generate renders a system and user template and calls the generator.
func (o *Orchestrator) generate(ctx context.Context, g Generator, systemTmpl, userTmpl string, systemData, userData any) (string, error) {
	system, err := o.prompts.Render(systemTmpl, systemData)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", systemTmpl, err)
	}
	prompt, err := o.prompts.Render(userTmpl, userData)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", userTmpl, err)
	}
	logging.TraceDefault("Rendered prompt", "template", userTmpl, "prompt", prompt)
	text, err := g.Generate(ctx, system, prompt)
	logging.TraceDefault("Generator output", "template", userTmpl, "text", truncate(text, 2000))
	return text, err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
