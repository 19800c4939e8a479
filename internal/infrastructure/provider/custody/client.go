package custody

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

const providerName = "custody"

type ProviderError = provider.Error

type Config struct {
	BaseURL               string
	Email                 string
	Password              string
	AccountID             string
	ContactID             string
	AssetID               string
	FundsTransferMethodID string
	RequestsPerSecond     float64
	TokenTTL              time.Duration
	Timeout               time.Duration
}

// Client talks to the custody API as one service account. The bearer token
// is shared by all callers and refreshed ahead of expiry or after a 401.
type Client struct {
	cfg     Config
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	tokens  TokenStore

	mu    sync.Mutex
	token *Token

	Logger  logging.Logger
	Metrics *metrics.Checkout
	Now     func() time.Time
}

func NewClient(cfg Config, tokens TokenStore, logger logging.Logger, m *metrics.Checkout) *Client {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if b := int(cfg.RequestsPerSecond); b > 1 {
			burst = b
		}
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		breaker: provider.NewBreaker(providerName, logger),
		limiter: rate.NewLimiter(limit, burst),
		tokens:  tokens,
		Logger:  logger,
		Metrics: m,
		Now:     time.Now,
	}
}

func (c *Client) AccountID() string {
	return c.cfg.AccountID
}

func (c *Client) ContactID() string {
	return c.cfg.ContactID
}

// bearer returns a token valid for at least RefreshWindow.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Now()
	if c.token == nil && c.tokens != nil {
		stored, err := c.tokens.LoadToken(c.cfg.Email)
		switch {
		case err == nil:
			c.token = stored
		case !errors.Is(err, ErrNoToken):
			c.logWarn("load custody token", map[string]any{"err": err})
		}
	}

	if !c.token.Expiring(now) {
		return c.token.Value, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	return c.token.Value, nil
}

// refresh mints a new token unless another caller already replaced stale.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Value != stale && !c.token.Expiring(c.Now()) {
		return c.token.Value, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	return c.token.Value, nil
}

func (c *Client) refreshLocked(ctx context.Context) error {
	now := c.Now()
	requested := now.Add(c.cfg.TokenTTL).UTC()

	var out tokenResponse
	var failure apiErrors

	start := time.Now()
	resp, err := provider.Do(c.breaker, providerName, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBasicAuth(c.cfg.Email, c.cfg.Password).
			SetBody(map[string]string{"expires_at": requested.Format(time.RFC3339)}).
			SetResult(&out).
			SetError(&failure).
			Post("/auth/jwts")
	})
	c.Metrics.ObserveProvider(providerName, "auth", time.Since(start))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &ProviderError{Provider: providerName, Status: resp.StatusCode(), Message: errorMessage(&failure, resp)}
	}
	if out.Token == "" {
		return &ProviderError{Provider: providerName, Status: resp.StatusCode(), Message: "empty token in auth response"}
	}

	expiresAt, ok := expiryOf(out.Token)
	if !ok {
		expiresAt = requested
	}

	token := Token{Value: out.Token, ExpiresAt: expiresAt, RefreshedAt: now}
	c.token = &token

	if c.tokens != nil {
		if err := c.tokens.SaveToken(c.cfg.Email, token); err != nil {
			c.logWarn("persist custody token", map[string]any{"err": err})
		}
	}
	return nil
}

type call struct {
	operation string
	method    string
	path      string
	body      any
	key       idempotency.Key
}

// send performs one API call. A 401 refreshes the token and repeats the
// request once with the same idempotency key.
func (c *Client) send(ctx context.Context, cl call, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.Metrics.ObserveProvider(providerName, cl.operation, time.Since(start)) }()

	resp, err := c.do(ctx, cl, token)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		c.logWarn("custody token rejected, refreshing", map[string]any{"operation": cl.operation})

		token, err = c.refresh(ctx, token)
		if err != nil {
			return err
		}
		resp, err = c.do(ctx, cl, token)
		if err != nil {
			return err
		}
	}

	if resp.IsError() {
		var failure apiErrors
		_ = json.Unmarshal(resp.Body(), &failure)
		return &ProviderError{Provider: providerName, Status: resp.StatusCode(), Message: errorMessage(&failure, resp)}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.operation, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, cl call, token string) (*resty.Response, error) {
	return provider.Do(c.breaker, providerName, func() (*resty.Response, error) {
		req := c.http.R().
			SetContext(ctx).
			SetAuthToken(token)
		if cl.body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
		}
		return idempotency.Apply(req, cl.key).Execute(cl.method, cl.path)
	})
}

func (c *Client) logWarn(msg string, fields map[string]any) {
	if c.Logger != nil {
		c.Logger.Warn(msg, fields)
	}
}

func errorMessage(failure *apiErrors, resp *resty.Response) string {
	if msg := failure.message(); msg != "" {
		return msg
	}
	if body := strings.TrimSpace(resp.String()); body != "" {
		return body
	}
	return resp.Status()
}
