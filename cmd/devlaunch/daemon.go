package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/devlaunch/internal/audit"
	"github.com/fentz26/devlaunch/internal/controlplane"
	"github.com/fentz26/devlaunch/internal/extract"
	"github.com/fentz26/devlaunch/internal/script"
	"github.com/fentz26/devlaunch/internal/sinks/filesink"
	"github.com/fentz26/devlaunch/internal/store"
	"github.com/fentz26/devlaunch/internal/taskfile"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	seedFile   string
	autoExport bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the devlaunch daemon",
	Long: `Starts the devlaunch daemon, which owns the task list and serves the HTTP
API used by the CLI and the TUI. The task list lives in memory; the database
only keeps the audit journal and export history.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().String("listen", "", "Listen address for the API server (default 127.0.0.1:7466)")
	daemonCmd.Flags().String("db", "", "Path to SQLite database (default ~/.devlaunch/devlaunch.db)")
	daemonCmd.Flags().String("out", "", "Directory exported scripts are written to")
	daemonCmd.Flags().Bool("strict", false, "Escape quotes and percent signs in names and commands")
	daemonCmd.Flags().StringVar(&seedFile, "seed", "", "Task file to load at startup")
	daemonCmd.Flags().BoolVar(&autoExport, "auto-export", false, "Re-export the script after every change")

	_ = v.BindPFlag("listen", daemonCmd.Flags().Lookup("listen"))
	_ = v.BindPFlag("db", daemonCmd.Flags().Lookup("db"))
	_ = v.BindPFlag("output.dir", daemonCmd.Flags().Lookup("out"))
	_ = v.BindPFlag("output.strict", daemonCmd.Flags().Lookup("strict"))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Info().Str("version", controlplane.Version).Msg("starting devlaunch daemon")

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	// Initialize components
	pdr := audit.NewPDRWriter(s)
	extractor := extract.NewGemini(extract.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("no API key configured; natural-language ingestion is disabled")
	}

	// Create service and server
	service := controlplane.NewService(pdr, extractor,
		controlplane.WithScriptOptions(script.Options{Strict: cfg.Output.Strict}),
		controlplane.WithStatusReset(2*time.Second),
	)
	sink := filesink.New(afero.NewOsFs(), cfg.Output.Dir)
	server := controlplane.NewServer(service, s, cfg.Listen)
	server.SetExportSink(sink)

	if seedFile != "" {
		raw, err := taskfile.Load(afero.NewOsFs(), seedFile)
		if err != nil {
			s.Close()
			return err
		}
		res := service.IngestRecords(raw)
		log.Info().
			Str("file", seedFile).
			Int("added", len(res.Added)).
			Int("rejected", len(res.Rejected)).
			Msg("seeded task list")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if autoExport {
		startAutoExport(ctx, service, sink)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			s.Close()
			return err
		}
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := s.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

// startAutoExport exports the script now and after every mutation. Bursts
// of changes collapse into one export.
func startAutoExport(ctx context.Context, service *controlplane.Service, sink *filesink.FileSink) {
	changed := make(chan struct{}, 1)
	service.Subscribe(func(controlplane.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	changed <- struct{}{}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if _, err := service.Export(ctx, sink, cfg.Output.Filename); err != nil {
					log.Error().Err(err).Msg("auto-export failed")
				}
			}
		}
	}()
}
