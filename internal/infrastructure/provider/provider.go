package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

var ErrUnavailable = errors.New("provider unavailable")

// Error is a non-success answer from an external provider. Status is zero
// when the request never got a response.
type Error struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewBreaker trips after repeated transport failures or 5xx answers. Client
// errors are handed back as responses and never count against it.
func NewBreaker(name string, logger logging.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("circuit breaker state changed", map[string]any{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

// Do sends req through the breaker. It returns the response for any status
// below 500; callers decide what a 4xx means.
func Do(cb *gobreaker.CircuitBreaker, name string, send func() (*resty.Response, error)) (*resty.Response, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		resp, err := send()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, &Error{Provider: name, Status: resp.StatusCode(), Message: resp.String()}
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &Error{Provider: name, Message: err.Error(), Err: ErrUnavailable}
	case err != nil:
		var pErr *Error
		if errors.As(err, &pErr) {
			return nil, pErr
		}
		return nil, &Error{Provider: name, Message: err.Error(), Err: err}
	}

	return out.(*resty.Response), nil
}
