package main

import (
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/orchestrator"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/config"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/persistence/sqlite"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

// app holds what every command needs: configuration, logging, metrics and
// storage.
type app struct {
	cfg      config.Config
	logger   *logging.LogrusLogger
	registry *prometheus.Registry
	metrics  *metrics.Checkout

	db     *sql.DB
	repos  orchestrator.Repositories
	tokens custody.TokenStore
	outbox outbox.Repository
}

func bootstrap(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logging.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format, nil),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCheckout(a.registry)

	if cfg.Database.Path == "" {
		a.logger.Warn("no database path configured, state is kept in memory", nil)
		a.repos = orchestrator.Repositories{
			Checkouts:      inmemory.NewCheckoutRepository(),
			Requests:       inmemory.NewRequestRepository(),
			Charges:        inmemory.NewChargeRepository(),
			FundsTransfers: inmemory.NewFundsTransferRepository(),
			Quotes:         inmemory.NewAssetQuoteRepository(),
			AssetTransfers: inmemory.NewAssetTransferRepository(),
			Accounts:       inmemory.NewCustodialAccountRepository(),
		}
		a.tokens = inmemory.NewTokenStore()
		a.outbox = outbox.NewMemoryRepository()
		return a, nil
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	a.db = db
	a.repos = orchestrator.Repositories{
		Checkouts:      sqlite.NewCheckoutRepository(db),
		Requests:       sqlite.NewRequestRepository(db),
		Charges:        sqlite.NewChargeRepository(db),
		FundsTransfers: sqlite.NewFundsTransferRepository(db),
		Quotes:         sqlite.NewAssetQuoteRepository(db),
		AssetTransfers: sqlite.NewAssetTransferRepository(db),
		Accounts:       sqlite.NewCustodialAccountRepository(db),
	}
	a.tokens = sqlite.NewTokenStore(db)
	a.outbox = outbox.NewSQLiteRepository(db)
	return a, nil
}

func (a *app) custodyClient() *custody.Client {
	c := a.cfg.Custody
	return custody.NewClient(custody.Config{
		BaseURL:               c.BaseURL,
		Email:                 c.Email,
		Password:              c.Password,
		AccountID:             c.AccountID,
		ContactID:             c.ContactID,
		AssetID:               c.AssetID,
		FundsTransferMethodID: c.FundsTransferMethodID,
		RequestsPerSecond:     c.RequestsPerSecond,
		TokenTTL:              c.TokenTTL,
		Timeout:               c.Timeout,
	}, a.tokens, a.logger, a.metrics)
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("close database", map[string]any{"err": err})
		}
	}
}
