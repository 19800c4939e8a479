package event

import (
	"encoding/json"
	"time"
)

type TransactionStatusPayload struct {
	CheckoutID     string     `json:"checkoutId"`
	Step           Step       `json:"step"`
	Status         StepStatus `json:"status"`
	CheckoutStatus string     `json:"checkoutStatus"`
	TransactionID  string     `json:"transactionId,omitempty"`
	Message        string     `json:"message"`
	Timestamp      time.Time  `json:"timestamp"`
}

type AccountStatusPayload struct {
	UserID          string    `json:"userId"`
	AccountID       string    `json:"accountId"`
	Verified        bool      `json:"verified"`
	Status          string    `json:"status"`
	RequiredActions []string  `json:"requiredActions,omitempty"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

// SubscriptionPayload is a partner-defined (type, id) pair clients can wait on.
type SubscriptionPayload struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type PartnerWebhookPayload struct {
	URL             string `json:"url,omitempty"`
	ID              string `json:"id"`
	PartnerOrderID  string `json:"partnerOrderId,omitempty"`
	Status          string `json:"status"`
	TransactionHash string `json:"transactionHash,omitempty"`
	UnitCount       string `json:"unitCount,omitempty"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	WalletAddress   string `json:"walletAddress"`
}
