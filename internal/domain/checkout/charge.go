package checkout

import "time"

// Charge is the terminal record of a card charge attempt. It is written once.
type Charge struct {
	ID           string
	CheckoutID   string
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
	CreatedAt    time.Time
}

var authorizedChargeStatuses = map[string]bool{
	"Authorized": true,
	"Captured":   true,
}

func (c *Charge) Authorized() bool {
	return c.Approved && authorizedChargeStatuses[c.Status]
}
