/*
Package main is the entry point for the planning poker server.

It is responsible for loading configuration, initializing the global logging system,
opening the room store, wiring the session engine (with the optional Redis relay),
setting up the HTTP server, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
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

	"planpoker/internal/app/relay"
	"planpoker/internal/app/session"
	"planpoker/internal/app/storage"
	"planpoker/internal/configs"
	"planpoker/internal/handler"
	"planpoker/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Bool("relay", cfg.RedisAddr != "").
		Dur("command_timeout", cfg.CommandTimeout).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewRoomStore(ctx, cfg.StoreConfig())
	if err != nil {
		logx.Fatal(err, "Failed to open room store", "driver", cfg.StoreDriver)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logx.Error(err, "Failed to close room store")
		}
	}()

	registry := session.NewRegistry()

	var fanout *session.Fanout
	if cfg.RedisAddr != "" {
		redisRelay, err := relay.NewRedisRelay(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logx.Fatal(err, "Failed to connect relay")
		}
		defer redisRelay.Close()

		fanout = session.NewFanout(registry, redisRelay)
		if err := redisRelay.Start(ctx, fanout.DeliverRelayed); err != nil {
			logx.Fatal(err, "Failed to start relay")
		}
	} else {
		fanout = session.NewFanout(registry, nil)
	}

	engine := session.NewEngine(store, registry, fanout, cfg.CommandTimeout)
	manager := session.NewManager()

	// Setup HTTP server and routes
	router := handler.Router(ctx, &handler.AppDeps{
		Config:   cfg,
		Store:    store,
		Registry: registry,
		Manager:  manager,
		Engine:   engine,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Planning poker server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Open sockets are hijacked and not covered by server.Shutdown.
	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
