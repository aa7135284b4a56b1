package main

import (
	"net/http"

	"github.com/hearthlabs/hearth/internal/api"
	"github.com/hearthlabs/hearth/internal/config"
	"github.com/hearthlabs/hearth/internal/db"
	"github.com/hearthlabs/hearth/internal/llm"
	"github.com/hearthlabs/hearth/internal/metrics"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded", zap.Error(err))
	}
	cfg := config.Load()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}
	defer database.Close()

	responder, err := llm.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.Fatal("failed to initialize AI responder", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	handler := api.NewHandler(database, responder, logger, m)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	logger.Info("starting server", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, api.Instrument(logger, m, mux)); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
