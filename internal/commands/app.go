package commands

import (
	"database/sql"
	"fmt"

	"github.com/cardcycle/backend/internal/aggregator"
	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/cycles"
	"github.com/cardcycle/backend/internal/database"
	"github.com/cardcycle/backend/internal/services"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type appOptions struct {
	viper      *viper.Viper
	configFile string
	log        zerolog.Logger
}

// app holds the process-wide dependencies. It is built once on startup and
// closed on shutdown; every service receives what it needs explicitly.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	redis   *redis.Client
	store   *database.Store
	reports *services.ReportCache
	repair  *services.RepairService
	sync    *services.SyncService
	log     zerolog.Logger
}

func newApp(opts appOptions) (*app, error) {
	log := opts.log
	config.Init(opts.viper, opts.configFile, log)

	cfg, err := config.Load(opts.viper)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := database.InitDB(database.GetConfig(opts.viper), log)
	if err != nil {
		return nil, err
	}
	rdb := database.InitRedis(opts.viper, log)

	store := database.NewStore(db)
	audit := services.NewAuditLogger(log)
	reports := services.NewReportCache(rdb, cfg.Engine.ReportTTL)
	engine := cycles.NewEngine(cycles.ParsePaymentPolicy(cfg.Engine.PaymentPolicy))
	repair := services.NewRepairService(store, engine, cfg.Institutions, cfg.Engine.OpenDateBufferDays, audit, reports, log)

	client := aggregator.NewHTTPClient(cfg.Aggregator.BaseURL, cfg.Aggregator.ClientID, cfg.Aggregator.Secret, cfg.Aggregator.Timeout)
	fetcher := aggregator.NewFetcher(client, cfg.Aggregator.RequestInterval, cfg.Aggregator.MaxAttempts,
		aggregator.NewRedisCooldown(rdb), log)
	sync := services.NewSyncService(store, fetcher, repair, cfg.Institutions, audit, log)

	log.Info().
		Str("payment_policy", string(engine.Classifier().Policy())).
		Int("preview_lookback_months", cfg.Engine.PreviewLookbackMonths).
		Int("backfill_lookback_months", cfg.Engine.BackfillLookbackMonths).
		Msg("Cycle engine configured")

	return &app{
		cfg:     cfg,
		db:      db,
		redis:   rdb,
		store:   store,
		reports: reports,
		repair:  repair,
		sync:    sync,
		log:     log,
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close Redis")
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close database")
	}
}
