package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubebar/internal/config"
	"clubebar/internal/infra"
	"clubebar/internal/repository"
	"clubebar/internal/router"
	"clubebar/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(ctx, cfg.DatabaseURL, cfg.AutoMigrateDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis backs the catalog cache and the receipt queue. The register keeps
	// selling without it.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL, cfg.RedisTimeout, cfg.WorkerPoolSize+10)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable: catalog uncached, receipts disabled")
			rdb = nil
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infra.NewBarMetrics(reg)

	cbCfg := infra.DefaultCBConfig()
	cbCfg.OnStateChange = func(from, to infra.CBState) {
		metrics.EstadoCircuito(to)
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("acbr: circuit breaker state changed")
	}
	breaker := infra.NewCircuitBreaker(cbCfg)
	acbr := infra.NewACBrClient(cfg.ACBrAddr, cfg.ACBrTimeout)

	if rdb != nil {
		mailer := infra.NewMailer(cfg)
		processors := map[string]worker.Processor{}
		// Without SMTP the PDF is still rendered, nothing is mailed.
		var emails worker.EmailEnqueuer
		if mailer.Configurado() {
			emails = worker.NewDispatcher(rdb)
			processors[worker.QueueEmail] = worker.NewEmailWorker(mailer)
		}
		processors[worker.QueueComprovante] = worker.NewComprovanteWorker(repository.NewPedidoRepository(db), emails, cfg.ClubeNome, cfg.PDFStoragePath)
		worker.NewPool(rdb, processors).Start(ctx, cfg.WorkerPoolSize)
	}

	r := router.New(cfg, router.Deps{
		DB:       db,
		Redis:    rdb,
		Emissor:  acbr,
		Breaker:  breaker,
		Metrics:  metrics,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // NFC-e waits on SEFAZ through ACBr
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("acbr", acbr.Addr()).
			Bool("nfce_ativo", cfg.NFCeAtivo).
			Msgf("clube bar backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	cancel() // stops the worker pool
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
