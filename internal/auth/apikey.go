package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	HeaderAPIKey        = "X-API-Key"
	HeaderAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// Rejection reasons reported to logs and metrics.
const (
	ReasonMissing  = "missing credential"
	ReasonMismatch = "credential mismatch"
)

// Decision is the result of checking a request's credential.
type Decision struct {
	Accepted bool
	Reason   string
}

// ExtractCredential returns the credential presented in h. The X-API-Key
// header wins over an Authorization bearer token; an empty X-API-Key falls
// through to the bearer token.
func ExtractCredential(h http.Header) (string, bool) {
	if key := h.Get(HeaderAPIKey); key != "" {
		return key, true
	}
	if authz := h.Get(HeaderAuthorization); strings.HasPrefix(authz, bearerPrefix) {
		return authz[len(bearerPrefix):], true
	}
	return "", false
}

// APIKeyValidator compares presented credentials against a shared secret.
type APIKeyValidator struct {
	secret []byte
}

// NewAPIKeyValidator creates a validator for secret.
func NewAPIKeyValidator(secret string) *APIKeyValidator {
	return &APIKeyValidator{secret: []byte(secret)}
}

// Validate checks the credential in h. An absent credential never matches,
// even against an empty secret.
func (v *APIKeyValidator) Validate(h http.Header) Decision {
	presented, ok := ExtractCredential(h)
	if !ok {
		return Decision{Reason: ReasonMissing}
	}
	if subtle.ConstantTimeCompare([]byte(presented), v.secret) != 1 {
		return Decision{Reason: ReasonMismatch}
	}
	return Decision{Accepted: true}
}
