package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"hkexplorer/internal/app"
	"hkexplorer/pkg/config"
	"hkexplorer/pkg/model"
	"hkexplorer/pkg/request"
)

// runner answers one message.
type runner interface {
	Plan(ctx context.Context, message string) (*model.WorkflowResult, error)
}

// localRunner runs the pipeline in-process against the configured catalog.
type localRunner struct {
	comps *app.Components
}

func (l *localRunner) Plan(ctx context.Context, message string) (*model.WorkflowResult, error) {
	res := l.comps.Planner.Run(ctx, model.PlanRequest{Message: message, Challenges: l.comps.Catalog})
	return &res.WorkflowResult, nil
}

// remoteRunner posts to a running server and reads the framed event stream.
type remoteRunner struct {
	client  *request.Client
	baseURL string
}

func (r *remoteRunner) Plan(ctx context.Context, message string) (*model.WorkflowResult, error) {
	body, err := r.client.PostJSON(ctx, r.baseURL+"/api/plan",
		model.PlanRequest{Message: message},
		map[string]string{"Accept": "text/event-stream"},
	)
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}
	return decodeResult(body)
}

// decodeResult reads a workflow result from a framed stream or a plain JSON body.
func decodeResult(body []byte) (*model.WorkflowResult, error) {
	raw, err := request.DecodeStream(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var res model.WorkflowResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("unexpected response: %w", err)
	}
	return &res, nil
}

func newRunner() (runner, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if remoteURL != "" {
		cfg.Client.Timeout = config.Duration(timeout)
		return &remoteRunner{
			client:  request.New(cfg.Client),
			baseURL: strings.TrimSuffix(remoteURL, "/"),
		}, nil
	}

	comps, err := app.Build(cfg, nil)
	if err != nil {
		return nil, err
	}
	return &localRunner{comps: comps}, nil
}

// printResult writes a result for a human, or as JSON.
func printResult(w io.Writer, res *model.WorkflowResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(w, res.Response)
	if res.Route == nil {
		return nil
	}
	fmt.Fprintln(w)
	for i, c := range res.Route.Challenges {
		fmt.Fprintf(w, "%d. %s [%s, %s]\n", i+1, c.Title, c.Type, c.ExpectedDuration)
		fmt.Fprintf(w, "   %s\n", c.Reason)
	}
	fmt.Fprintf(w, "\nTotal: %s (travel %s)\n", res.Route.TotalDuration, res.Route.EstimatedTravelTime)
	return nil
}
