package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yomitore/internal/app"
	"yomitore/internal/dataset"
	"yomitore/internal/db"
	"yomitore/internal/history"
	"yomitore/internal/logger"
	"yomitore/internal/trainer"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{Log: log}
	var recorder history.Recorder = history.NewMemoryStore(0)
	if cfg.DBDSN != "" {
		conn, err := db.OpenPostgres(ctx, cfg.DBDSN, cfg.Pool())
		if err != nil {
			log.Fatal("database error", zap.Error(err))
		}
		defer conn.Close()

		store := history.NewPostgresStore(conn)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal("history schema", zap.Error(err))
		}
		recorder = store
		deps.DB = conn
		log.Info("judgment history stored in postgres")
	}

	provider := dataset.NewProvider(dataset.NewSource(cfg.DatasetSource, cfg.DatasetFetchTimeout), cfg.Columns())
	if items, err := provider.Load(ctx); err != nil {
		// sessions will keep reporting the failure until the file is fixed
		log.Warn("quiz data not loadable at startup", zap.String("source", cfg.DatasetSource), zap.Error(err))
	} else {
		log.Info("quiz data loaded", zap.String("source", cfg.DatasetSource), zap.Int("items", len(items)))
	}

	deps.Dataset = provider
	deps.Trainer = trainer.NewService(provider, trainer.Options{
		Reveal:      cfg.Reveal(),
		MinInterval: cfg.RevealMinInterval,
		MaxInterval: cfg.RevealMaxInterval,
		SessionTTL:  cfg.SessionTTL,
		Recorder:    recorder,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("yomitore web listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
