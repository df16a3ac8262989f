// @title cashpos API
// @version 1.0
// @description Cash-register sessions, ledger and drawer reconciliation.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
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

	"cashpos/internal/config"
	"cashpos/internal/infra"
	"cashpos/internal/reconcile"
	"cashpos/internal/repository"
	"cashpos/internal/router"
	"cashpos/internal/worker"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infra.NewMetrics(reg)

	mailer := infra.NewMailer(cfg)
	deps := router.Deps{
		DB:          db,
		Metrics:     metrics,
		Gatherer:    reg,
		MailBreaker: mailer.Breaker(),
	}

	// Without Redis there is no job queue: close-out reports are skipped and
	// the register list is cached in-process.
	if cfg.RedisURL != "" {
		rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()

		dispatcher := worker.NewDispatcher(rdb)
		pool := worker.NewPool(rdb, metrics)
		pool.Handle(worker.QueueCloseReport, worker.NewCloseReportWorker(
			repository.NewCajaRepository(db),
			dispatcher,
			worker.CloseReportConfig{
				StoragePath: cfg.PDFStoragePath,
				StoreName:   cfg.StoreName,
				Recipient:   cfg.ReportRecipient,
				Thresholds:  reconcile.NewThresholds(cfg.DiscrepancyWarnPct, cfg.DiscrepancyCriticalPct),
			},
		))
		pool.Handle(worker.QueueEmail, worker.NewEmailWorker(mailer))
		pool.Start(ctx, cfg.WorkerPoolSize)
		worker.StartRedriveCron(ctx, worker.RedriveCronConfig{RDB: rdb, CB: mailer.Breaker(), Queue: worker.QueueEmail})

		deps.Redis = rdb
		deps.Dispatcher = dispatcher
	} else {
		log.Warn().Msg("REDIS_URL not set: close-out reports disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("cashpos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogger writes human-readable output on a terminal and JSON otherwise.
func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
