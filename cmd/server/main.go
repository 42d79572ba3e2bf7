package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restopos/internal/config"
	"restopos/internal/infra"
	"restopos/internal/router"
	"restopos/internal/worker"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger. dev: pretty, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := router.Deps{DB: db}

	// Redis is optional: without it there are no single-flight locks and no
	// summary e-mails, but every cash operation keeps working.
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without locks or summary jobs")
	} else {
		deps.Redis = rdb
		deps.Guard = infra.NewLocker(redislock.New(rdb), cfg.LockTTL(), infra.LockBreaker())
		deps.Notifier = worker.NewDispatcher(rdb)
	}

	svcs, err := router.NewServices(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build services")
	}

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	if rdb != nil {
		mailer := infra.NewMailer(cfg)
		summaries := worker.NewSummaryWorker(svcs.Shifts, mailer, cfg.SupervisorEmail, cfg.PDFStoragePath, svcs.Location)

		pool := worker.NewPool(rdb, cfg.WorkerPoolSize)
		pool.Handle(worker.QueueShiftSummary, worker.JobShiftSummary, summaries.Process)
		pool.Start(ctx)

		worker.StartReplayCron(ctx, worker.ReplayCronConfig{
			RDB:    rdb,
			Queues: []string{worker.QueueShiftSummary},
			CB:     mailer.Breaker(),
		})
	}

	r := router.New(cfg, deps, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("timezone", cfg.BusinessTimezone).Msgf("restopos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
