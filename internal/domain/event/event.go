package event

// Type doubles as the pub/sub topic name.
type Type string

const (
	TransactionStatus Type = "TRANSACTION_STATUS"
	AccountStatus     Type = "ACCOUNT_STATUS"
	Subscription      Type = "SUBSCRIPTION"
	PartnerWebhook    Type = "PARTNER_WEBHOOK"
)

type Event struct {
	Type    Type
	Payload any
}

// Step is the pipeline phase a transaction notification refers to.
type Step string

const (
	StepCharge        Step = "charge"
	StepFundsTransfer Step = "funds_transfer"
	StepQuote         Step = "quote"
	StepAssetTransfer Step = "asset_transfer"
)

type StepStatus string

const (
	StepProcessing StepStatus = "processing"
	StepSettled    StepStatus = "settled"
	StepFailed     StepStatus = "failed"
)
