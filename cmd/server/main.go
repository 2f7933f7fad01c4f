package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkaravel/cryptotrends/internal/analysis"
	"github.com/mkaravel/cryptotrends/internal/config"
	"github.com/mkaravel/cryptotrends/internal/database"
	"github.com/mkaravel/cryptotrends/internal/export"
	"github.com/mkaravel/cryptotrends/internal/query"
	"github.com/mkaravel/cryptotrends/internal/scheduler"
	"github.com/mkaravel/cryptotrends/internal/secrets"
	"github.com/mkaravel/cryptotrends/internal/server"
	"github.com/mkaravel/cryptotrends/internal/store"
	"github.com/mkaravel/cryptotrends/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting cryptotrends")

	ctx := context.Background()

	// Resolve database credentials from Secrets Manager when configured
	if cfg.DB.SecretName != "" {
		creds, err := secrets.FetchDBCredentials(ctx, cfg.DB.SecretName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch database credentials")
		}
		cfg.DB.Username = creds.Username
		cfg.DB.Password = creds.Password
		if creds.Host != "" {
			cfg.DB.Host = creds.Host
		}
		if creds.Port != 0 {
			cfg.DB.Port = creds.Port
		}
		if creds.DBName != "" {
			cfg.DB.Name = creds.DBName
		}
	}

	// Initialize database
	db, err := database.Connect(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Wire the repositories and the analysis pipeline
	st := store.New(db, cfg.DB.QueryTimeout)
	orchestrator := analysis.New(st.Assets, st.Bars, st.Trends, st.Signals, st.Runs, cfg.Analysis, log)
	interpreter := query.NewInterpreter(st.Results, st.QueryLogs, log)
	exporter := export.New(st.Trends, st.Signals)

	// Initialize scheduler
	sched := scheduler.New(log)
	if cfg.Analysis.Schedule != "" {
		job := scheduler.NewAnalysisJob(orchestrator, time.Hour, log)
		if err := sched.AddJob(cfg.Analysis.Schedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Analysis.Schedule).Msg("Failed to register analysis job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Log:          log,
		DB:           db,
		Queries:      interpreter,
		Analysis:     orchestrator,
		Runs:         st.Runs,
		Exporter:     exporter,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
