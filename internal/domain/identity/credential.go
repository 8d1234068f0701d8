package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the short-lived bearer token issued by the backend.
// Structurally it is a three-part signed token; the client checks shape
// only, never the signature.
type Credential string

const credentialSegments = 3

// Valid reports whether the credential splits into exactly three non-empty
// dot-separated segments. This is the only structural guarantee the client
// enforces; everything beyond shape is the server's business.
func (c Credential) Valid() bool {
	parts := strings.Split(string(c), ".")
	if len(parts) != credentialSegments {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// ExpiresAt peeks at the token's exp claim without verifying the signature.
// The result is advisory (status display, near-expiry metrics); expiry
// decisions are always made by the server via 401 responses. Returns false
// when the token does not parse as a JWT or carries no expiry.
func (c Credential) ExpiresAt() (time.Time, bool) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(string(c), jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Redacted returns a loggable form of the credential that leaks only the
// first few characters.
func (c Credential) Redacted() string {
	const visible = 6
	if len(c) <= visible {
		return "***"
	}
	return string(c[:visible]) + "***"
}
