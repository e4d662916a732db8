package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cortepos/internal/config"
	"cortepos/internal/infra"
	"cortepos/internal/repository"
	"cortepos/internal/router"
	"cortepos/internal/scheduler"
	"cortepos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Storage backend selection: transactional Postgres or append-only JSON
	// file. Both present the same LedgerStore contract; all backend-specific
	// locking lives behind it.
	var (
		db      *gorm.DB
		store   repository.LedgerStore
		txnRepo repository.TransactionRepository
	)
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err = infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		store = repository.NewGormLedgerStore(db)
		txnRepo = repository.NewTransactionRepository(db)
	case config.BackendFile:
		store = repository.NewFileLedgerStore(cfg.FileStorePath)
		txnRepo = repository.NewFileTransactionRepository(cfg.FileStorePath + ".records")
		log.Warn().Str("path", cfg.FileStorePath).
			Msg("file backend selected: single-instance deployment only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregator := service.NewAggregator(txnRepo)
	replay := service.NewReplayCache(rdb, cfg.ReplayWindow())
	coordinator := service.NewCutCoordinator(store, aggregator, replay)
	if err := coordinator.LoadCursor(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load cut cursor")
	}
	ledger := service.NewLedgerService(store)
	transactions := service.NewTransactionService(txnRepo)

	// Recurring automatic cuts at the configured wall-clock marks.
	marks, _ := cfg.CutMarks()
	scheduler.New(coordinator, marks).Start(ctx)

	r := router.New(cfg, router.Deps{
		Coordinator:  coordinator,
		Ledger:       ledger,
		Transactions: transactions,
		DB:           db,
		Redis:        rdb,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("cortepos backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
