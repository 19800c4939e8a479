package idempotency

import (
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const HeaderName = "Idempotency-Key"

// namespace for derived keys; changing it changes every derived key.
var namespace = uuid.MustParse("7f1c2b8e-4d0a-5b6e-9c3f-1a2b3c4d5e6f")

// Key identifies one logical mutating request. Retries of that request
// reuse it, a new logical request gets a new one.
type Key string

func (k Key) String() string {
	return string(k)
}

// Derive returns a stable key for a step of a checkout. The same inputs always
// produce the same key, so a re-run step that the provider already executed
// is deduplicated provider-side.
func Derive(checkoutID string, parts ...string) Key {
	name := checkoutID
	if len(parts) > 0 {
		name += "/" + strings.Join(parts, "/")
	}
	return Key(uuid.NewSHA1(namespace, []byte(name)).String())
}

// Apply sets the standard idempotency header. An empty key is a no-op.
func Apply(req *resty.Request, key Key) *resty.Request {
	return ApplyAs(req, HeaderName, key)
}

// ApplyAs sets key under a provider specific header name.
func ApplyAs(req *resty.Request, header string, key Key) *resty.Request {
	if key == "" {
		return req
	}
	return req.SetHeader(header, key.String())
}
