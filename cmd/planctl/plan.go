package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// planCmd plans a route for one message.
var planCmd = &cobra.Command{
	Use:   "plan <message>",
	Short: "Plan a route for a message",
	Example: `  planctl plan "3 hours, love food and photography"
  planctl plan --remote http://localhost:8080 "quick culture walk"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		res, err := r.Plan(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, jsonOutput)
	},
}
