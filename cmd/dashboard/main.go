package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrew/vecdash/pkg/config"
	"github.com/andrew/vecdash/pkg/dashboard"
	"github.com/andrew/vecdash/pkg/logging"
	"github.com/andrew/vecdash/pkg/vector"
)

var (
	configPath = flag.String("config", config.DefaultFile, "Path to the TOML config file")
	addr       = flag.String("addr", "", "Address to listen on (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging to stderr")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Dashboard.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Log.Level
	var extra []io.Writer
	if *debug {
		level = "DEBUG"
		extra = append(extra, os.Stderr)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger, closer, err := logging.Open(cfg.Log.File, level, extra...)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := vector.NewFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to configure vector store: %w", err)
	}
	defer store.Sessions().Release()

	// Initialize context with cancellation on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := dashboard.NewRouter(dashboard.NewHandler(store, store.Sessions(), logger))
	server := &http.Server{
		Addr:              cfg.Dashboard.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting dashboard", "addr", cfg.Dashboard.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down...")
	logger.Info("shutting down dashboard")

	// Shutdown the server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
