// Package bootstrap assembles the invoice core shared by the api, worker and cron binaries.
package bootstrap

import (
	"fmt"

	"github.com/angelmondragon/kudibooks-backend/internal/credentials"
	"github.com/angelmondragon/kudibooks-backend/internal/invoices"
	"github.com/angelmondragon/kudibooks-backend/internal/quota"
	"github.com/angelmondragon/kudibooks-backend/internal/tasks"
	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/httpclient"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments/flutterwave"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments/paystack"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments/stripe"
	"github.com/angelmondragon/kudibooks-backend/pkg/security"
)

// Core holds the services every binary drives.
type Core struct {
	Gateway     *payments.Gateway
	Credentials *credentials.Resolver
	Quota       *quota.Service
	TaskRepo    *tasks.Repository
	Dispatcher  *tasks.Dispatcher
	Invoices    *invoices.Service
}

// NewGateway registers every supported provider behind the retrying HTTP client.
func NewGateway(cfg config.PaymentsConfig, logg *logger.Logger) (*payments.Gateway, error) {
	httpClient := httpclient.New(httpclient.Options{
		Timeout:  cfg.RequestTimeout,
		RetryMax: cfg.RetryMax,
		Logger:   logg,
	})
	stripeClient, err := stripe.New(stripe.Options{Environment: cfg.StripeEnvironment()})
	if err != nil {
		return nil, fmt.Errorf("stripe client: %w", err)
	}
	return payments.NewGateway(
		paystack.New(paystack.Options{
			BaseURL:             cfg.PaystackBaseURL,
			HTTP:                httpClient,
			FallbackEmailDomain: cfg.FallbackEmailDomain,
		}),
		flutterwave.New(flutterwave.Options{
			BaseURL: cfg.FlutterwaveBaseURL,
			HTTP:    httpClient,
		}),
		stripeClient,
	)
}

func NewCore(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*Core, error) {
	gateway, err := NewGateway(cfg.Payments, logg)
	if err != nil {
		return nil, err
	}

	sealer, err := security.NewSealer(cfg.Security.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("credentials sealer: %w", err)
	}
	defaultProvider, err := enums.ParsePaymentProvider(cfg.Payments.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("default payment provider: %w", err)
	}
	resolver, err := credentials.NewResolver(credentials.ResolverParams{
		Repo:            credentials.NewRepository(dbClient.DB()),
		Sealer:          sealer,
		Platform:        credentials.PlatformCredentials(cfg.Payments),
		DefaultProvider: defaultProvider,
		Logger:          logg,
	})
	if err != nil {
		return nil, fmt.Errorf("credentials resolver: %w", err)
	}

	quotaService, err := quota.NewService(quota.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, fmt.Errorf("quota service: %w", err)
	}

	taskRepo := tasks.NewRepository(dbClient.DB())
	dispatcher := tasks.NewDispatcher(taskRepo, logg, cfg.Tasks.MaxAttempts)

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:        invoices.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Quota:       quotaService,
		Credentials: resolver,
		Gateway:     gateway,
		Tasks:       dispatcher,
		Logger:      logg,
		LinkTimeout: cfg.Payments.RequestTimeout,
		RenderDelay: cfg.Tasks.RenderDelay,
		CallbackURL: cfg.Payments.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("invoice service: %w", err)
	}

	return &Core{
		Gateway:     gateway,
		Credentials: resolver,
		Quota:       quotaService,
		TaskRepo:    taskRepo,
		Dispatcher:  dispatcher,
		Invoices:    invoiceService,
	}, nil
}
