package custody

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshWindow is how close to expiry a token gets refreshed ahead of use.
const RefreshWindow = 5 * time.Minute

var ErrNoToken = errors.New("no stored token")

type Token struct {
	Value       string
	ExpiresAt   time.Time
	RefreshedAt time.Time
}

func (t *Token) Expiring(now time.Time) bool {
	return t == nil || t.Value == "" || t.ExpiresAt.Before(now.Add(RefreshWindow))
}

// TokenStore persists the bearer token of a service account so restarts do
// not mint a new one. Load returns ErrNoToken when nothing is stored.
type TokenStore interface {
	LoadToken(email string) (*Token, error)
	SaveToken(email string, token Token) error
}

// expiryOf reads the exp claim. The token is not verified: it was just
// received from the issuer over TLS and is only forwarded back to it.
func expiryOf(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
