package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hkexplorer/internal/api"
	"hkexplorer/internal/app"
	"hkexplorer/pkg/config"
	"hkexplorer/pkg/db"
	"hkexplorer/pkg/logging"
	"hkexplorer/pkg/probe"
	"hkexplorer/pkg/store"
	"hkexplorer/pkg/tracker"
	"hkexplorer/pkg/version"
)

const defaultConfigPath = "configs/hkexplorer.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("hkexplorer started", "version", version.Version, "commit", version.Commit)

	tr := tracker.New()
	comps, err := app.Build(appCfg, tr)
	if err != nil {
		return err
	}

	dbConn, st := initDB(ctx, appCfg)
	if dbConn != nil {
		defer dbConn.Close()
	}

	// Startup Verification
	var journal probe.Pinger
	if dbConn != nil {
		journal = dbConn
	}
	if err := comps.Verify(ctx, journal); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, comps, st, tr)
}

// initDB opens the plan journal. The journal is optional: on failure the
// server runs without one.
func initDB(ctx context.Context, appCfg *config.Config) (*db.DB, store.PlanStore) {
	if appCfg.DB.Path == "" {
		slog.Info("Plan journal disabled")
		return nil, nil
	}
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		slog.Error("Failed to open plan journal, continuing without it", "path", appCfg.DB.Path, "error", err)
		return nil, nil
	}

	if retention := appCfg.DB.Retention.Std(); retention > 0 {
		if n, err := dbConn.PrunePlans(ctx, retention); err != nil {
			slog.Warn("Failed to prune plan journal", "error", err)
		} else if n > 0 {
			slog.Info("Pruned plan journal", "removed", n, "older_than", retention)
		}
	}
	return dbConn, store.NewSQLiteStore(dbConn)
}

func runServer(ctx context.Context, cfg *config.Config, comps *app.Components, st store.PlanStore, tr *tracker.Tracker) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	planH := api.NewPlanHandler(comps.Planner, st, comps.Catalog)
	journalH := api.NewJournalHandler(st)
	chatH := api.NewChatHandler(planH)
	statsH := api.NewStatsHandler(tr, comps.LLM.Names())

	srv := api.NewServer(cfg.Server.Address, planH, journalH, chatH, statsH, shutdownFunc)
	srv.Handler = loggingMiddleware(srv.Handler)

	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.RequestLogger.Info("Request Processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"plan_id", w.Header().Get("X-Plan-ID"),
			"duration", time.Since(start))
	})
}
