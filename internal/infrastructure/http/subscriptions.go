package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

type Watcher interface {
	Watch(eventType event.Type, buffer int) (<-chan event.Event, func())
}

type SubscriptionPublisher interface {
	PublishSubscription(event.SubscriptionPayload)
}

// SubscriptionHandler streams notifications as server-sent events.
type SubscriptionHandler struct {
	Bus       Watcher
	Publisher SubscriptionPublisher
	Logger    logging.Logger
	KeepAlive time.Duration
}

func (h *SubscriptionHandler) Transactions(c *gin.Context) {
	checkoutID := c.Param("checkoutId")
	h.stream(c, event.TransactionStatus, func(evt event.Event) bool {
		p, ok := evt.Payload.(event.TransactionStatusPayload)
		return ok && p.CheckoutID == checkoutID
	})
}

func (h *SubscriptionHandler) Accounts(c *gin.Context) {
	userID := c.Param("userId")
	h.stream(c, event.AccountStatus, func(evt event.Event) bool {
		p, ok := evt.Payload.(event.AccountStatusPayload)
		return ok && p.UserID == userID
	})
}

func (h *SubscriptionHandler) Topic(c *gin.Context) {
	topic, id := c.Param("type"), c.Param("id")
	h.stream(c, event.Subscription, func(evt event.Event) bool {
		p, ok := evt.Payload.(event.SubscriptionPayload)
		return ok && p.Type == topic && p.ID == id
	})
}

type publishRequest struct {
	Type string          `json:"type" binding:"required"`
	ID   string          `json:"id" binding:"required"`
	Data json.RawMessage `json:"data"`
}

func (h *SubscriptionHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and id are required"})
		return
	}

	h.Publisher.PublishSubscription(event.SubscriptionPayload{
		Type: req.Type,
		ID:   req.ID,
		Data: req.Data,
	})
	c.Status(http.StatusAccepted)
}

func (h *SubscriptionHandler) stream(c *gin.Context, topic event.Type, match func(event.Event) bool) {
	events, cancel := h.Bus.Watch(topic, 32)
	defer cancel()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case evt, ok := <-events:
			if !ok {
				return false
			}
			if match(evt) {
				c.SSEvent(string(evt.Type), evt.Payload)
			}
			return true
		}
	})
}
