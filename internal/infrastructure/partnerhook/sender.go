package partnerhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

var ErrNoURL = errors.New("partner webhook has no url")

// Sender POSTs checkout request outcomes to the partner's webhook URL.
type Sender struct {
	http   *resty.Client
	Logger logging.Logger
}

func NewSender(timeout time.Duration, logger logging.Logger) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "checkout-webhooks/1.0"),
		Logger: logger,
	}
}

// Send delivers PARTNER_WEBHOOK events and drops every other type.
func (s *Sender) Send(ctx context.Context, evt event.Event) error {
	if evt.Type != event.PartnerWebhook {
		return nil
	}

	payload, err := decode(evt.Payload)
	if err != nil {
		return err
	}
	if payload.URL == "" {
		return ErrNoURL
	}

	target := payload.URL
	payload.URL = ""

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(target)
	if err != nil {
		return fmt.Errorf("post partner webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("partner webhook %s answered %d", target, resp.StatusCode())
	}

	if s.Logger != nil {
		s.Logger.Info("partner webhook delivered", map[string]any{
			"checkout-request-id": payload.ID,
			"status":              payload.Status,
		})
	}
	return nil
}

func decode(v any) (event.PartnerWebhookPayload, error) {
	switch p := v.(type) {
	case event.PartnerWebhookPayload:
		return p, nil
	case *event.PartnerWebhookPayload:
		return *p, nil
	case json.RawMessage:
		var out event.PartnerWebhookPayload
		if err := json.Unmarshal(p, &out); err != nil {
			return out, fmt.Errorf("decode partner webhook: %w", err)
		}
		return out, nil
	default:
		return event.PartnerWebhookPayload{}, fmt.Errorf("unexpected partner webhook payload %T", v)
	}
}
