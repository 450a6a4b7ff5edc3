package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hkexplorer/pkg/catalog"
	"hkexplorer/pkg/model"
)

var parallel int

// scenariosCmd runs the bundled test scenarios.
var scenariosCmd = &cobra.Command{
	Use:   "scenarios [n]",
	Short: "Run the bundled test scenarios",
	Long: `Run the bundled scenarios concurrently and print each result next to
what a good answer looks like. With n, only the first n scenarios run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarios := catalog.Scenarios()
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("n must be a positive integer, got %q", args[0])
			}
			scenarios = scenarios[:min(n, len(scenarios))]
		}

		r, err := newRunner()
		if err != nil {
			return err
		}
		outcomes := runScenarios(cmd.Context(), r, scenarios, parallel, timeout)
		return printScenarios(cmd.OutOrStdout(), outcomes, jsonOutput)
	},
}

func init() {
	scenariosCmd.Flags().IntVarP(&parallel, "parallel", "p", 3, "Scenarios to run at once")
}

type scenarioOutcome struct {
	Scenario catalog.Scenario
	Result   *model.WorkflowResult
	Err      error
	Elapsed  time.Duration
}

// runScenarios runs every scenario and returns the outcomes in input order.
// A failing scenario does not stop the others.
func runScenarios(ctx context.Context, r runner, scenarios []catalog.Scenario, limit int, perRun time.Duration) []scenarioOutcome {
	out := make([]scenarioOutcome, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(ctx, perRun)
			defer cancel()

			start := time.Now()
			res, err := r.Plan(runCtx, sc.Message)
			out[i] = scenarioOutcome{Scenario: sc, Result: res, Err: err, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func printScenarios(w io.Writer, outcomes []scenarioOutcome, asJSON bool) error {
	failed := 0
	for i, o := range outcomes {
		fmt.Fprintf(w, "%s\nScenario %d: %s (%s)\n%s\n", strings.Repeat("=", 60), i+1, o.Scenario.Name, o.Elapsed.Round(time.Millisecond), strings.Repeat("=", 60))
		fmt.Fprintf(w, "Message:  %s\nExpected: %s\n\n", o.Scenario.Message, o.Scenario.Expect)
		if o.Err != nil {
			failed++
			fmt.Fprintf(w, "ERROR: %v\n\n", o.Err)
			continue
		}
		if err := printResult(w, o.Result, asJSON); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(outcomes))
	}
	return nil
}
