package charge

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

// Result is the provider view of one payment.
type Result struct {
	ProviderID   string
	Status       string
	Amount       int64
	Currency     string
	Approved     bool
	Flagged      bool
	ProcessedAt  time.Time
	Reference    string
	Last4        string
	Bin          string
	ResponseCode string
}

func (r *Result) ToCharge(checkoutID string, now time.Time) *checkout.Charge {
	processed := r.ProcessedAt
	if processed.IsZero() {
		processed = now
	}
	return &checkout.Charge{
		ID:           r.ProviderID,
		CheckoutID:   checkoutID,
		Status:       r.Status,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Approved:     r.Approved,
		Flagged:      r.Flagged,
		ProcessedAt:  processed,
		Reference:    r.Reference,
		Last4:        r.Last4,
		Bin:          r.Bin,
		ResponseCode: r.ResponseCode,
		CreatedAt:    now,
	}
}

type address struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
}

type paymentSource struct {
	Type           string   `json:"type"`
	Token          string   `json:"token"`
	BillingAddress *address `json:"billing_address,omitempty"`
}

type customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type paymentRequest struct {
	Source              paymentSource     `json:"source"`
	Amount              int64             `json:"amount"`
	Currency            string            `json:"currency"`
	PaymentType         string            `json:"payment_type"`
	Reference           string            `json:"reference"`
	Description         string            `json:"description"`
	Customer            customer          `json:"customer"`
	ProcessingChannelID string            `json:"processing_channel_id,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Approved     bool      `json:"approved"`
	ResponseCode string    `json:"response_code"`
	ProcessedOn  time.Time `json:"processed_on"`
	Reference    string    `json:"reference"`
	Risk         struct {
		Flagged bool `json:"flagged"`
	} `json:"risk"`
	Source struct {
		Last4 string `json:"last4"`
		Bin   string `json:"bin"`
	} `json:"source"`
}

func (p *paymentResponse) result() *Result {
	return &Result{
		ProviderID:   p.ID,
		Status:       p.Status,
		Amount:       p.Amount,
		Currency:     strings.ToUpper(p.Currency),
		Approved:     p.Approved,
		Flagged:      p.Risk.Flagged,
		ProcessedAt:  p.ProcessedOn,
		Reference:    p.Reference,
		Last4:        p.Source.Last4,
		Bin:          p.Source.Bin,
		ResponseCode: p.ResponseCode,
	}
}

type errorResponse struct {
	RequestID  string   `json:"request_id"`
	ErrorType  string   `json:"error_type"`
	ErrorCodes []string `json:"error_codes"`
}

func (e *errorResponse) message(resp *resty.Response) string {
	if e.ErrorType == "" {
		if body := strings.TrimSpace(resp.String()); body != "" {
			return body
		}
		return resp.Status()
	}
	if len(e.ErrorCodes) == 0 {
		return e.ErrorType
	}
	return e.ErrorType + ": " + strings.Join(e.ErrorCodes, ", ")
}
