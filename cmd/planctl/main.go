// Command planctl plans Hong Kong challenge routes from the command line,
// either in-process or against a running hkexplorer server.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hkexplorer/pkg/version"
)

var (
	configPath string
	remoteURL  string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Plan Hong Kong challenge routes",
	Long: `planctl runs the route planning pipeline for a message.

By default the pipeline runs in-process with the providers and catalog from
the config file; without a catalog path the bundled sample is used. With
--remote the message is sent to a running hkexplorer server instead.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read .env: %w", err)
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/hkexplorer.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&remoteURL, "remote", "r", "", "Base URL of a running server, e.g. http://localhost:8080")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "Timeout per request")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the raw workflow result as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	rootCmd.AddCommand(planCmd, scenariosCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
