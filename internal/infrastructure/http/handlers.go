package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	app "github.com/rcarvalho-pb/checkout_system-go/internal/application/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

// RequesterHeader carries the authenticated user id set by the gateway.
const RequesterHeader = "X-Requester-Id"

type CheckoutService interface {
	Process(ctx context.Context, in app.Input, requesterID string) (*checkout.Checkout, error)
	GetCheckout(ctx context.Context, id string) (*checkout.Checkout, error)
	GetCheckoutStatus(ctx context.Context, id string) (*app.StatusView, error)
	CreateCheckoutRequest(ctx context.Context, in app.RequestInput) (*app.RequestResult, error)
}

type CheckoutHandler struct {
	Service CheckoutService
	Logger  logging.Logger
}

type CheckoutResponse struct {
	ID                 string          `json:"id"`
	Status             checkout.Status `json:"status"`
	CheckoutRequestID  string          `json:"checkoutRequestId,omitempty"`
	CustodialAccountID string          `json:"custodialAccountId,omitempty"`
	WalletAddress      string          `json:"walletAddress"`
	Amount             decimal.Decimal `json:"amount"`
	Tip                decimal.Decimal `json:"tip"`
	Fee                decimal.Decimal `json:"fee"`
	TotalChargeAmount  decimal.Decimal `json:"totalChargeAmount"`
	Currency           string          `json:"currency"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func toResponse(co *checkout.Checkout) CheckoutResponse {
	return CheckoutResponse{
		ID:                 co.ID,
		Status:             co.Status,
		CheckoutRequestID:  co.CheckoutRequestID,
		CustodialAccountID: co.CustodialAccountID,
		WalletAddress:      co.WalletAddress,
		Amount:             co.AmountMoney().ToMajorUnit(),
		Tip:                co.TipAmount().ToMajorUnit(),
		Fee:                co.FeeAmount().ToMajorUnit(),
		TotalChargeAmount:  co.TotalChargeAmount().ToMajorUnit(),
		Currency:           co.Currency,
		CreatedAt:          co.CreatedAt,
	}
}

func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var in app.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	co, err := h.Service.Process(c.Request.Context(), in, c.GetHeader(RequesterHeader))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(co))
}

func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	co, err := h.Service.GetCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(co))
}

func (h *CheckoutHandler) GetCheckoutStatus(c *gin.Context) {
	view, err := h.Service.GetCheckoutStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) CreateCheckoutRequest(c *gin.Context) {
	var in app.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.Service.CreateCheckoutRequest(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CheckoutHandler) writeError(c *gin.Context, err error) {
	var vErr *checkout.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
	case errors.Is(err, checkout.ErrCheckoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.Logger.Error("checkout request failed", map[string]any{
			"path": c.FullPath(),
			"err":  err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
