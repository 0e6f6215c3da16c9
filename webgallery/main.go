package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/config"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/gallery"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	addr       string
	dbType     string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "webgallery",
	Short: "Serve shared gallery links",
	Long: `Serve gallery links created by the share pipeline.

Endpoints:
  GET /gallery/{id} - Gallery manifest as JSON (404 unknown, 410 expired)
  GET /galleries    - List stored gallery ids
  GET /metrics      - Prometheus metrics
  GET /tracez       - OpenTelemetry trace debugging`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "photoshare.yaml", "Config file (.yaml or .toml)")
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	rootCmd.Flags().StringVar(&dbType, "db-type", "", "Gallery store type, overrides config: 'bolt', 'pebble', 'sqlite', or 'filetree'")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Gallery store path, overrides config")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbType != "" {
		cfg.Store.Type = dbType
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	// Each request opens the store briefly, so the share CLI can write
	// new galleries while the server runs and they are served at once.
	store := db.NewPerCall(cfg.Store.Type, cfg.Store.Path)
	if err := store.Check(); err != nil {
		return fmt.Errorf("failed to open gallery store: %w", err)
	}

	tracez, shutdown, err := tracing.Initialize("webgallery", "1.0.0")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdown()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gs := NewGalleryServer(store, gallery.NewReader(store, nil), logger, reg)
	srv := &http.Server{
		Addr:              addr,
		Handler:           gs.Handler(reg, tracez),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting webgallery server",
			zap.String("addr", addr),
			zap.String("db_type", cfg.Store.Type),
			zap.String("db", cfg.Store.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
