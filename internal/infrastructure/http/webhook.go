package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/orchestrator"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, w orchestrator.Webhook) error
}

// WebhookHandler acknowledges every custody callback. Failures are logged
// by the processor; the provider never sees them.
type WebhookHandler struct {
	Processor WebhookProcessor
	Logger    logging.Logger
}

func (h *WebhookHandler) Custody(c *gin.Context) {
	var w orchestrator.Webhook
	if err := c.ShouldBindJSON(&w); err != nil {
		h.Logger.Warn("undecodable custody webhook", map[string]any{"err": err})
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}

	// the provider may hang up before the pipeline step finishes
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.Processor.HandleWebhook(ctx, w); err != nil {
		h.Logger.Warn("custody webhook unresolved", map[string]any{
			"resource-type": w.ResourceType,
			"resource-id":   w.ID(),
			"err":           err,
		})
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
