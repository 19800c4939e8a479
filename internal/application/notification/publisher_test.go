package notification_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/notification"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/eventbus"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, map[string]any) {}
func (l *recordingLogger) Info(string, map[string]any)  {}
func (l *recordingLogger) Warn(string, map[string]any)  {}
func (l *recordingLogger) Error(msg string, _ map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type failingBus struct{}

func (failingBus) Publish(event.Event) error { return errors.New("sink down") }

func TestPublisher_TransactionStatus_StampsTimestamp(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	ch, cancel := bus.Watch(event.TransactionStatus, 1)
	defer cancel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &notification.Publisher{Bus: bus, Now: func() time.Time { return fixed }}

	p.PublishTransactionStatus(event.TransactionStatusPayload{
		CheckoutID: "co-1",
		Step:       event.StepCharge,
		Status:     event.StepProcessing,
	})

	evt := <-ch
	payload, ok := evt.Payload.(event.TransactionStatusPayload)
	require.True(t, ok)
	require.Equal(t, "co-1", payload.CheckoutID)
	require.Equal(t, fixed, payload.Timestamp)
}

func TestPublisher_SwallowsBusErrors(t *testing.T) {
	logger := &recordingLogger{}
	p := &notification.Publisher{Bus: failingBus{}, Logger: logger}

	require.NotPanics(t, func() {
		p.PublishAccountStatus(event.AccountStatusPayload{UserID: "u-1"})
		p.PublishSubscription(event.SubscriptionPayload{Type: "order", ID: "1"})
	})
	require.Len(t, logger.errors, 2)
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *notification.Publisher
	require.NotPanics(t, func() {
		p.PublishTransactionStatus(event.TransactionStatusPayload{CheckoutID: "co-1"})
	})
}
