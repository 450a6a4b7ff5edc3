package planner

import (
	"context"
	"fmt"
	"strings"

	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/llm/prompts"
	"hkexplorer/pkg/model"
)

// Canned replies used when the guide returns nothing for a short circuit.
const (
	GreetingResponse     = "Hi there! Welcome to Hong Kong. How much time do you have, and what are you into: food, hiking, photography?"
	EmptyCatalogResponse = "Sorry, there are no challenges loaded right now. Please try again in a moment!"
)

const (
	noHistory = "This is the start of the conversation."
	noSocial  = "No other travelers yet, they could be the first!"
)

var greetings = map[string]bool{
	"hi": true, "hey": true, "hello": true, "yo": true,
	"sup": true, "hola": true, "hii": true, "heya": true,
}

// IsGreeting reports whether the message is a bare greeting.
func IsGreeting(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, "!.?, ")
	return greetings[m]
}

// shortCircuit answers without extraction or selection and without a route.
func (o *Orchestrator) shortCircuit(ctx context.Context, req model.PlanRequest, tmpl, fallback string) (model.WorkflowResult, error) {
	text, err := o.generate(ctx, o.guide,
		prompts.GuideSystem, tmpl,
		map[string]any{"StopCount": 0},
		map[string]any{"Message": req.Message},
	)
	if err != nil {
		return model.WorkflowResult{}, err
	}
	resp := ReadNarration(text)
	if resp == "" {
		resp = fallback
	}
	return model.WorkflowResult{Response: resp}, nil
}

// narrate asks the guide to present the route. The route is not changed.
func (o *Orchestrator) narrate(ctx context.Context, req model.PlanRequest, r *model.Route) (string, error) {
	text, err := o.generate(ctx, o.guide,
		prompts.GuideSystem, prompts.GuideUser,
		map[string]any{"StopCount": len(r.Challenges)},
		map[string]any{
			"History":       FormatHistory(req.History, o.cfg.HistoryTurns),
			"Message":       req.Message,
			"Route":         r,
			"Social":        SocialProof(r, req.Challenges),
			"TotalDuration": r.TotalDuration,
			"TravelTime":    r.EstimatedTravelTime,
		},
	)
	if err != nil {
		return "", err
	}

	if resp := ReadNarration(text); resp != "" {
		return resp, nil
	}
	return Summary(r), nil
}

// ReadNarration takes the "response" field when the text holds a JSON
// object with one, and the trimmed raw text otherwise.
func ReadNarration(text string) string {
	if s, ok := llm.String(llm.ExtractObject(text), "response"); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return strings.TrimSpace(text)
}

// FormatHistory renders the last n turns as "role: content" lines.
func FormatHistory(history []model.Turn, n int) string {
	if len(history) == 0 {
		return noHistory
	}
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines, "\n")
}

// SocialProof lists how many people joined each stop, from the catalog.
// Stops nobody joined are left out.
func SocialProof(r *model.Route, catalog []model.Challenge) string {
	idx := model.Catalog(catalog)
	var b strings.Builder
	for _, rc := range r.Challenges {
		c, ok := idx[rc.ID]
		if !ok || len(c.JoinedPeople) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d other traveler(s) already joined\n", rc.Title, len(c.JoinedPeople))
	}
	if b.Len() == 0 {
		return noSocial
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summary is a plain narration of the route used when the guide returns nothing.
func Summary(r *model.Route) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's your plan with %d stop", len(r.Challenges))
	if len(r.Challenges) != 1 {
		b.WriteString("s")
	}
	b.WriteString(":\n")
	for i, c := range r.Challenges {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.Title, c.ExpectedDuration)
	}
	fmt.Fprintf(&b, "That's %s of challenges plus about %s getting between them. Have fun!", r.TotalDuration, r.EstimatedTravelTime)
	return b.String()
}
