package charge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

const (
	providerName      = "charge"
	idempotencyHeader = "Cko-Idempotency-Key"
)

type ProviderError = provider.Error

type Config struct {
	BaseURL             string
	SecretKey           string
	ProcessingChannelID string
	Timeout             time.Duration
}

type Client struct {
	http      *resty.Client
	breaker   *gobreaker.CircuitBreaker
	channelID string

	Logger  logging.Logger
	Metrics *metrics.Checkout
}

func NewClient(cfg Config, logger logging.Logger, m *metrics.Checkout) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:      httpClient,
		breaker:   provider.NewBreaker(providerName, logger),
		channelID: cfg.ProcessingChannelID,
		Logger:    logger,
		Metrics:   m,
	}
}

// Charge requests an authorization for the checkout total. A declined card is
// not an error: it comes back as a Result that is not authorized.
func (c *Client) Charge(ctx context.Context, co *checkout.Checkout, key idempotency.Key) (*Result, error) {
	total := co.TotalChargeAmount()

	body := paymentRequest{
		Source: paymentSource{
			Type:  "token",
			Token: co.CheckoutTokenID,
			BillingAddress: &address{
				AddressLine1: co.StreetAddress,
				AddressLine2: co.StreetAddress2,
				City:         co.City,
				State:        co.State,
				Zip:          co.Zip,
				Country:      co.Country,
			},
		},
		Amount:      total.Amount(),
		Currency:    total.Currency(),
		PaymentType: "Regular",
		Reference:   Reference(co.ID),
		Description: fmt.Sprintf("Purchase for %s", co.AmountMoney()),
		Customer: customer{
			Email: co.Email,
			Name:  co.FullName(),
		},
		ProcessingChannelID: c.channelID,
		Metadata: map[string]string{
			"checkout_id": co.ID,
		},
	}

	var out paymentResponse
	var failure errorResponse

	start := time.Now()
	resp, err := provider.Do(c.breaker, providerName, func() (*resty.Response, error) {
		req := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			SetError(&failure)
		return idempotency.ApplyAs(req, idempotencyHeader, key).Post("/payments")
	})
	c.Metrics.ObserveProvider(providerName, "payments", time.Since(start))
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusCreated, http.StatusAccepted, http.StatusOK:
	default:
		return nil, &ProviderError{
			Provider: providerName,
			Status:   resp.StatusCode(),
			Message:  failure.message(resp),
		}
	}

	return out.result(), nil
}

func Reference(checkoutID string) string {
	return "ORDER " + checkoutID
}
