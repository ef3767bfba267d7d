package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/config"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/database"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/kafka"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/nsp"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/router"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/service"
)

// App is the sync daemon: the periodic ETL loop plus the probe server.
type App struct {
	cfg      *config.Config
	logger   zerolog.Logger
	sync     *service.SyncService
	producer *kafka.Producer
	httpSrv  *http.Server
}

// New validates config, applies migrations, opens the warehouse and wires
// the cycle. A failure here is fatal: without a warehouse connection there
// is nothing to retry into.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	client := nsp.NewClient(cfg.API.URL, cfg.API.Key, cfg.API.GroupName, logger)
	warehouse := service.NewWarehouseService(db, logger, cfg.Sync.TimestampFallback)
	producer := kafka.NewProducer(kafka.ParseBrokers(cfg.Kafka.Brokers), cfg.Kafka.Topic, logger)
	syncSvc := service.NewSyncService(client, warehouse, producer, cfg.Location(), cfg.Sync.DateFormat, logger)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		sync:     syncSvc,
		producer: producer,
	}
	if cfg.HTTPPort != "" {
		app.httpSrv = &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           router.New(syncSvc),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return app, nil
}

// Run starts the probe server and the sync loop, blocking until ctx is
// cancelled. The first cycle runs immediately; afterwards one cycle per
// interval. A failed cycle is logged by kind and the loop carries on — the
// process never exits because of a single bad cycle.
func (a *App) Run(ctx context.Context) error {
	if a.httpSrv != nil {
		go func() {
			a.logger.Info().Str("addr", a.httpSrv.Addr).Msg("probe server listening")
			if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error().Err(err).Msg("probe server failed")
			}
		}()
	}

	a.logger.Info().
		Dur("interval", a.cfg.Sync.Interval).
		Str("timezone", a.cfg.Sync.Timezone).
		Msg("sync loop started")

	a.runCycle(ctx)

	ticker := time.NewTicker(a.cfg.Sync.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return a.shutdown()
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

func (a *App) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := a.sync.RunCycle(ctx); err != nil {
		a.logger.Error().
			Str("kind", service.Classify(err)).
			Err(err).
			Msg("sync cycle failed")
	}
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("shutting down")
	if err := a.producer.Close(); err != nil {
		a.logger.Error().Err(err).Msg("kafka close failed")
	}
	if a.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
