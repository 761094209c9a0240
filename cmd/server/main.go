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

	"cierrecaja/internal/config"
	"cierrecaja/internal/infra"
	"cierrecaja/internal/router"
	"cierrecaja/internal/service"
	"cierrecaja/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// memoryDSN keeps closings in process instead of Postgres.
const memoryDSN = "memory://"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger, dev: pretty, prod: JSON
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deps router.Deps

	if cfg.DatabaseURL != memoryDSN {
		deps.DB, err = infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
	} else {
		log.Warn().Msg("DATABASE_URL=memory://, closings are lost on restart")
	}

	if cfg.RedisURL != "" {
		deps.RDB, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer deps.RDB.Close()
	} else {
		log.Warn().Msg("REDIS_URL not set, sessions in memory and delivery disabled")
	}

	if cfg.GCSBucket != "" {
		gcs, err := infra.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open GCS bucket")
		}
		defer gcs.Close()
		deps.Archivos = gcs
	} else {
		deps.Archivos = infra.NewLocalStore(cfg.PDFStoragePath)
	}

	mailer := infra.NewMailer(cfg)
	var bot *infra.Telegram
	if cfg.TelegramBotToken != "" {
		bot, err = infra.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("telegram disabled")
		}
	}

	if deps.RDB != nil {
		deps.Encolador = worker.NewDispatcher(deps.RDB)
		deps.Email = mailer.Configurado()
		deps.Telegram = bot != nil
	}

	svc := router.NuevosServicios(cfg, deps)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	if deps.RDB != nil {
		fuente := fuenteCierres{CierreService: svc.Cierres, Exportador: svc.Exportador}
		pool := worker.NewPool(deps.RDB)
		if deps.Email {
			cb := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
			pool.Register(worker.QueueEmailCierre, worker.JobEmailCierre, worker.NewEmailCierreWorker(fuente, mailer, cb))
		}
		if deps.Telegram {
			cb := infra.NewCircuitBreaker(infra.DefaultCBConfig("telegram"))
			pool.Register(worker.QueueTelegramCierre, worker.JobTelegramCierre, worker.NewTelegramCierreWorker(fuente, bot, cb))
		}
		pool.Start(ctx, cfg.WorkerPoolSize)
		worker.StartRetryCron(ctx, deps.RDB)
	}

	r := router.New(cfg, deps, svc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("cierre de caja listening on :%d", cfg.Port)
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

// fuenteCierres gives the delivery workers lookup and rendering in one value.
type fuenteCierres struct {
	service.CierreService
	service.Exportador
}
