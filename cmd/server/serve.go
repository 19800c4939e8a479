package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	checkoutapp "github.com/rcarvalho-pb/checkout_system-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/application/notification"
	"github.com/rcarvalho-pb/checkout_system-go/internal/application/orchestrator"
	"github.com/rcarvalho-pb/checkout_system-go/internal/application/worker"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/lock"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/partnerhook"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/charge"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the checkout pipeline and the outbox dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireProviders(); err != nil {
				return err
			}
			return serve(a)
		},
	}
}

func serve(a *app) error {
	cfg := a.cfg
	logger := a.logger

	bus := eventbus.NewInMemoryBus()
	publisher := &notification.Publisher{Bus: bus, Logger: logger}

	chargeClient := charge.NewClient(charge.Config{
		BaseURL:             cfg.Charge.BaseURL,
		SecretKey:           cfg.Charge.SecretKey,
		ProcessingChannelID: cfg.Charge.ProcessingChannelID,
		Timeout:             cfg.Charge.Timeout,
	}, logger, a.metrics)

	custodyClient := a.custodyClient()
	var custodyProvider custody.Provider = custodyClient
	if !cfg.IsProduction() {
		logger.Info("custody sandbox mode: resources are settled automatically", nil)
		custodyProvider = custody.NewTestModeProvider(custodyClient, custodyClient, logger)
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Repos:            a.repos,
		Charge:           chargeClient,
		Custody:          custodyProvider,
		Notifier:         publisher,
		Outbox:           &outbox.Recorder{Repo: a.outbox},
		Lock:             lock.NewKeyed(cfg.Checkout.LockMaxPending),
		Logger:           logger,
		Metrics:          a.metrics,
		CentralAccountID: cfg.Custody.AccountID,
		ProcessDelay:     cfg.Checkout.ProcessDelay,
	})

	svc := &checkoutapp.Service{
		Checkouts:      a.repos.Checkouts,
		Requests:       a.repos.Requests,
		Charges:        a.repos.Charges,
		FundsTransfers: a.repos.FundsTransfers,
		Quotes:         a.repos.Quotes,
		AssetTransfers: a.repos.AssetTransfers,
		Accounts:       a.repos.Accounts,
		Scheduler:      orch,
		Settings: checkoutapp.Settings{
			KYCThreshold:   cfg.Checkout.KYCThreshold,
			DefaultFee:     cfg.Checkout.DefaultFee,
			DefaultFeeType: checkout.TipType(cfg.Checkout.DefaultFeeType),
			FrontendURI:    cfg.Checkout.FrontendURI,
		},
		Logger:  logger,
		Metrics: a.metrics,
	}

	dispatcher := &outbox.Dispatcher{
		Repo:   a.outbox,
		Sender: partnerhook.NewSender(0, logger),
		Retry: &worker.RetryScheduler{
			MaxRetry:  cfg.Outbox.MaxAttempts,
			BaseDelay: cfg.Outbox.BaseDelay,
			MaxDelay:  cfg.Outbox.MaxDelay,
		},
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		Logger:       logger,
		Metrics:      a.metrics,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Handlers{
		Checkout: &httpapi.CheckoutHandler{Service: svc, Logger: logger},
		Webhook:  &httpapi.WebhookHandler{Processor: orch, Logger: logger},
		Subscriptions: &httpapi.SubscriptionHandler{
			Bus:       bus,
			Publisher: publisher,
			Logger:    logger,
		},
	}, a.metrics, a.registry, logger)

	srv := &http.Server{
		Addr:        cfg.HTTP.Addr(),
		Handler:     router,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		// event streams stay open, so no write timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", map[string]any{
			"addr":        srv.Addr,
			"environment": cfg.Environment,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			orch.Close()
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", map[string]any{"err": err})
	}
	orch.Close()
	return nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
