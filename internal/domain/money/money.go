package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrCurrencyMismatch = errors.New("currency mismatch")

var hundred = decimal.NewFromInt(100)

// zero-decimal currencies; everything else is assumed to use cents
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
}

// Money is an immutable amount in the minor unit of its currency.
type Money struct {
	amount   int64
	currency string
}

func New(minor int64, currency string) Money {
	return Money{amount: minor, currency: strings.ToUpper(currency)}
}

func Zero(currency string) Money {
	return New(0, currency)
}

// FromMajor converts a major-unit amount (e.g. 12.345 USD), rounding half
// away from zero to the currency's minor unit.
func FromMajor(major decimal.Decimal, currency string) Money {
	currency = strings.ToUpper(currency)
	minor := major.Shift(exponent(currency)).Round(0)
	return Money{amount: minor.IntPart(), currency: currency}
}

func exponent(currency string) int32 {
	if e, ok := exponents[currency]; ok {
		return e
	}
	return 2
}

func (m Money) Amount() int64 {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount == 0
}

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// MultiplyByFraction scales the amount by f (0.02 for two percent) and rounds
// half away from zero to the minor unit.
func (m Money) MultiplyByFraction(f decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.amount).Mul(f).Round(0)
	return Money{amount: scaled.IntPart(), currency: m.currency}
}

// Percent is MultiplyByFraction(p/100) without the intermediate division
// losing precision.
func (m Money) Percent(p decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.amount).Mul(p).Div(hundred).Round(0)
	return Money{amount: scaled.IntPart(), currency: m.currency}
}

func (m Money) ToMajorUnit() decimal.Decimal {
	return decimal.NewFromInt(m.amount).Shift(-exponent(m.currency))
}

func (m Money) String() string {
	return m.ToMajorUnit().StringFixed(exponent(m.currency)) + " " + m.currency
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.ToMajorUnit().StringFixed(exponent(m.currency)),
		Currency: m.currency,
	})
}
