package planner

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"hkexplorer/pkg/duration"
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/llm/prompts"
	"hkexplorer/pkg/model"
)

// extractPreferences asks the planner model for preferences. Any failure
// yields defaults. The raw reply is returned as notes for the next stage.
func (o *Orchestrator) extractPreferences(ctx context.Context, log *slog.Logger, message string) (model.Preferences, string) {
	text, err := o.generate(ctx, o.planner,
		prompts.PlannerSystem, prompts.PlannerUser,
		map[string]any{"Categories": model.Categories},
		map[string]any{"Message": message},
	)
	if err != nil {
		log.Warn("Preference extraction failed, using defaults", "error", err)
		text = ""
	}

	prefs := ParsePreferences(llm.ExtractObject(text), o.cfg.DefaultHours)
	return prefs, strings.TrimSpace(text)
}

// ParsePreferences reads preferences from an extracted object, filling
// defaults for anything missing or malformed.
func ParsePreferences(obj map[string]any, defaultHours float64) model.Preferences {
	prefs := model.DefaultPreferences()
	if defaultHours > 0 {
		prefs.AvailableTimeHours = defaultHours
	}

	if h, ok := llm.Float(obj, "available_time_hours", "time_hours", "hours"); ok && h > 0 {
		prefs.AvailableTimeHours = min(h, model.MaxAvailableHours)
	}

	if raw, ok := llm.Strings(obj, "interests", "interest"); ok {
		for _, s := range raw {
			c := model.ParseCategory(s)
			if c == model.CategoryOther || slices.Contains(prefs.Interests, c) {
				continue
			}
			prefs.Interests = append(prefs.Interests, c)
		}
	}

	if s, ok := llm.String(obj, "difficulty_preference", "difficulty"); ok {
		if d := model.ParseDifficulty(s); d != model.DifficultyOther {
			prefs.Difficulty = d
		}
	}

	if n, ok := llm.Float(obj, "group_size"); ok && n >= 1 {
		prefs.GroupSize = int(n)
	}

	if s, ok := llm.String(obj, "special_requests"); ok {
		prefs.SpecialRequests = strings.TrimSpace(s)
	}

	return prefs
}

// selectCandidates asks the research model to pick and order stops.
// Failures return an empty object, which sends assembly to the fallback.
func (o *Orchestrator) selectCandidates(ctx context.Context, log *slog.Logger, prefs model.Preferences, notes string, catalog []model.Challenge) map[string]any {
	budget := duration.Format(prefs.BudgetSeconds())
	text, err := o.generate(ctx, o.research,
		prompts.ResearchSystem, prompts.ResearchUser,
		nil,
		map[string]any{
			"Preferences":  prefs,
			"PlannerNotes": notes,
			"Hours":        prefs.AvailableTimeHours,
			"Budget":       budget,
			"Count":        len(catalog),
			"Catalog":      catalog,
		},
	)
	if err != nil {
		log.Warn("Candidate selection failed", "error", err)
		return map[string]any{}
	}

	obj := llm.ExtractObject(text)
	if len(obj) == 0 {
		log.Warn("Candidate selection returned no usable JSON", "text", truncate(text, 200))
	}
	return obj
}
