// Package main is the entry point for the csafcms API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"csafcms/internal/domain/advisory"
	v1 "csafcms/internal/infrastructure/http/v1"
	"csafcms/internal/infrastructure/storage/couchdb"
	"csafcms/pkg/logger"
)

const appVersion = "0.1.0"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
		Fields:      map[string]any{"service": "csafcms", "version": appVersion},
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log.Desugar())

	ctx := context.Background()
	log.Info("starting csafcms server")

	// --- CouchDB ---
	couchCfg := loadCouchConfig()
	store, err := couchdb.New(couchCfg, log)
	if err != nil {
		log.Fatalw("invalid couchdb configuration", "error", err)
	}

	if getEnvBool("COUCHDB_CREATE_DB", false) {
		if err := store.EnsureDatabase(ctx); err != nil {
			log.Fatalw("failed to create couchdb database", "db", store.DBName(), "error", err)
		}
	}

	if version, err := store.ServerVersion(ctx); err != nil {
		log.Warnw("couchdb not reachable at startup", "url", couchCfg.BaseURL(), "error", err)
	} else {
		log.Infow("couchdb connection established",
			"url", couchCfg.BaseURL(),
			"db", store.DBName(),
			"version", version,
		)
	}

	// --- Services ---
	advisories := advisory.NewService(store, log)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:     log,
		Store:      store,
		Advisories: advisories,
		Documents:  store,
		AppVersion: appVersion,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: couchCfg.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
