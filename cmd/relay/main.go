package main

import (
	"bookchat/auth"
	"bookchat/infrastructure/rest"
	"bookchat/infrastructure/ws"
	"bookchat/internal"
	"bookchat/observability"
	"bookchat/relay"
	"bookchat/repositories"
	"bookchat/runtime"
	"bookchat/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// The pattern keeps 'defer' statements (database cleanup) working on every exit path and
// decouples initialization from the process entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	level, err := internal.LogLevelFromString(config.LogLevel)
	if err != nil {
		return exitConfig, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLogger(nil).
		WithIndexCacheSize(64 << 20)

	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Relay core
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)

	registry := runtime.NewRegistry()
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, users, logger, config.LimitMessages)
	relayService := relay.NewService(logger, registry, messages,
		config.MaxMessageLength, config.StrictSender, metrics)

	var verifier *auth.Verifier
	if config.JWTSecret != "" {
		verifier = auth.NewVerifier(config.JWTSecret)
		logger.Info("Handshake token verification enabled")
	}

	// 4. Background workers under supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewTelemetryWorker(logger, config.MetricInterval, registry),
		workers.NewStoreGCWorker(logger, db, config.GCInterval),
	)

	// 5. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. HTTP surface
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(logger, registry, relayService, verifier, metrics,
		config.SessionBufferSize, config.WriteTimeout))
	mux.Handle("/api/messages", rest.NewHistoryHandler(logger, messages))
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Relay listening", "address", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for shutdown or fatal error
	select {
	case err := <-errChan:
		stop()
		<-supDone
		return exitRuntime, err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}

	sup.Stop()
	<-supDone
	return exitOK, nil
}
