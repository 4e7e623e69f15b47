package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/RonitGandotra05/agent-xray/internal/api"
	"github.com/RonitGandotra05/agent-xray/internal/config"
	"github.com/RonitGandotra05/agent-xray/internal/diagnose"
	"github.com/RonitGandotra05/agent-xray/internal/oracle/cerebras"
	"github.com/RonitGandotra05/agent-xray/internal/server"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
	"github.com/RonitGandotra05/agent-xray/internal/storage/memory"
	"github.com/RonitGandotra05/agent-xray/internal/storage/sqldb"
	"github.com/RonitGandotra05/agent-xray/internal/telemetry"
)

func main() {
	// Optional .env for local development; env vars win either way.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdown, err := telemetry.InitTracer("agent-xray", logger)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open storage",
			slog.String("driver", cfg.Storage.Driver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer store.Close()

	oracleClient := cerebras.New(cfg.Oracle.APIKey,
		cerebras.WithBaseURL(cfg.Oracle.BaseURL),
		cerebras.WithModel(cfg.Oracle.Model),
		cerebras.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		}),
	)
	logger.Info("oracle configured", slog.String("oracle", oracleClient.String()))

	engine := diagnose.New(oracleClient, diagnose.Config{
		MaxPayloadBytes:    cfg.Analysis.MaxPayloadBytes,
		SampleSize:         cfg.Analysis.SampleSize,
		MinSampleSize:      cfg.Analysis.MinSampleSize,
		StringTruncate:     cfg.Analysis.StringTruncate,
		WindowSize:         cfg.Analysis.WindowSize,
		MaxOutputTokens:    cfg.Analysis.MaxOutputTokens,
		Temperature:        cfg.Analysis.Temperature,
		ContextTokenBudget: cfg.Analysis.ContextTokenBudget,
	},
		diagnose.WithLogger(logger),
		diagnose.WithEventSink(diagnose.LogSink{Logger: logger}),
	)

	srv := server.New(cfg.Server.Port, logger)
	api.NewHandler(store, engine, logger).RegisterRoutes(srv.Router)

	if err := srv.Start(); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (storage.TraceStore, error) {
	if cfg.Storage.Driver == "memory" {
		return memory.New(), nil
	}
	return sqldb.New(sqldb.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
	})
}
