// Package main provides the entry point for the Sprite Suite server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"sprite-suite/internal/app"
	"sprite-suite/internal/detect"
	"sprite-suite/internal/server"
	"sprite-suite/internal/store"
	"sprite-suite/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", app.DefaultConfigPath(), "Configuration file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	logDir := flag.String("log-dir", "", "Directory for the rotated JSON log (overrides config)")
	logLevel := flag.String("log-level", "", "Console log level (overrides config)")
	backend := flag.String("store", "", "Project store: memory, dir or s3 (overrides config)")
	storeDir := flag.String("store-dir", "", "Directory for the dir store (overrides config)")
	hotReload := flag.Bool("hot-reload", false, "Restart when the server binary is rebuilt")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "log-dir":
			cfg.LogDir = *logDir
		case "log-level":
			cfg.LogLevel = *logLevel
		case "store":
			cfg.Store.Backend = *backend
		case "store-dir":
			cfg.Store.Dir = *storeDir
		case "hot-reload":
			cfg.HotReload = *hotReload
		}
	})

	cleanup, err := app.InitLogger(cfg.LogDir, cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *app.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	kv, err := cfg.OpenStore()
	if err != nil {
		return err
	}

	detector := detect.NewService(
		detect.WithDefaults(cfg.Detect),
		detect.WithCacheCapacity(cfg.CacheCapacity),
	)
	defer detector.Close()

	srv := server.New(store.NewProjects(kv), detector,
		server.WithDetectDefaults(cfg.Detect),
		server.WithMaxBody(cfg.MaxUploadBytes),
		server.WithMaxPixels(cfg.MaxPixels),
	)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restart := make(chan string, 1)
	if cfg.HotReload {
		setupHotReload(ctx, restart)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Listen).
			Str("store", cfg.Store.Backend).
			Str("version", version.Version).
			Msg("sprite-suite listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	var execPath string
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case execPath = <-restart:
		log.Info().Str("path", execPath).Msg("restarting for new binary")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if execPath != "" {
		detector.Close()
		return app.RestartProcess(execPath)
	}
	return nil
}

// setupHotReload sends the new binary's path on restart once it changes.
func setupHotReload(ctx context.Context, restart chan<- string) {
	reloader, err := app.NewHotReloader(2 * time.Second)
	if err != nil {
		log.Warn().Err(err).Msg("hot reload disabled")
		return
	}
	log.Info().Str("path", reloader.ExecPath()).Msg("hot reload: watching binary")
	reloader.OnNewBinary(func(path string) {
		select {
		case restart <- path:
		default:
		}
	})
	reloader.Start(ctx)
}
