package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated principal the connection runs as. It is
// supplied by the surrounding application and changes only on login/logout.
type Identity struct {
	UserID      string
	DisplayName string
	Token       string
}

// Provider hands the connection manager the current identity. The second
// return value is false when nobody is logged in or the credential is no
// longer usable, in which case connecting is a no-op.
type Provider interface {
	Current() (Identity, bool)
}

// StaticProvider serves one fixed identity. Used by the CLI probe and tests.
type StaticProvider struct {
	identity Identity
}

func NewStaticProvider(identity Identity) *StaticProvider {
	return &StaticProvider{identity: identity}
}

func (p *StaticProvider) Current() (Identity, bool) {
	if p.identity.UserID == "" || p.identity.Token == "" {
		return Identity{}, false
	}
	if Expired(p.identity.Token, time.Now()) {
		return Identity{}, false
	}
	return p.identity, true
}

// Expired reports whether a JWT credential has already expired. The signature
// is not verified here; the server owns verification. The client only needs
// to know whether dialing is pointless. Opaque non-JWT tokens pass through.
func Expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(now)
}

// Subject extracts the 'sub' claim from a JWT credential without verifying
// it, for logging and sanity checks against the configured user id.
func Subject(token string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
