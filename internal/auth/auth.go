// Package auth gates privileged operations behind a capability token that is
// obtained once per process by presenting the configured password.
package auth

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gtank/cryptopasta"

	"github.com/cleared-dev/libro/internal/apperr"
)

// Token proves that the password was presented in this process. The zero
// Token is not valid; only an Authorizer can mint one.
type Token struct {
	session uuid.UUID
	issued  time.Time
}

// Valid reports whether t was issued by an Authorizer.
func (t Token) Valid() bool { return t.session != uuid.Nil }

// Session returns the session id, used to correlate audit log entries.
func (t Token) Session() string {
	if !t.Valid() {
		return ""
	}
	return t.session.String()
}

// Issued returns when the token was minted.
func (t Token) Issued() time.Time { return t.issued }

// Require returns an AuthRequired error unless t is valid.
func Require(t Token, op string) error {
	if t.Valid() {
		return nil
	}
	return apperr.New(apperr.KindAuthRequired, op, "password required")
}

// Authorizer checks passwords against a configured secret. The secret is
// either plain text or a bcrypt hash produced by HashSecret.
type Authorizer struct {
	secret string
	now    func() time.Time

	mu    sync.Mutex
	token Token
}

// New creates an Authorizer for secret.
func New(secret string) *Authorizer {
	return &Authorizer{secret: secret, now: time.Now}
}

// Authorize checks password and returns the session token. The first
// successful call mints the token; later successful calls return the same one.
func (a *Authorizer) Authorize(password string) (Token, error) {
	if a.secret == "" {
		return Token{}, apperr.New(apperr.KindAuthRequired, "authorize", "no password configured")
	}
	if !a.check(password) {
		return Token{}, apperr.New(apperr.KindAuthRequired, "authorize", "wrong password")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.token.Valid() {
		a.token = Token{session: uuid.New(), issued: a.now()}
	}
	return a.token, nil
}

// Current returns the token minted by a previous Authorize, if any.
func (a *Authorizer) Current() (Token, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token, a.token.Valid()
}

func (a *Authorizer) check(password string) bool {
	if IsHashed(a.secret) {
		return cryptopasta.CheckPasswordHash([]byte(a.secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(a.secret), []byte(password)) == 1
}

// HashSecret returns a bcrypt hash of password suitable for the config file.
func HashSecret(password string) (string, error) {
	if password == "" {
		return "", apperr.New(apperr.KindValidation, "hash secret", "empty password")
	}
	h, err := cryptopasta.HashPassword([]byte(password))
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnknown, "hash secret", err)
	}
	return string(h), nil
}

// IsHashed reports whether secret looks like a bcrypt hash.
func IsHashed(secret string) bool {
	return strings.HasPrefix(secret, "$2a$") || strings.HasPrefix(secret, "$2b$") || strings.HasPrefix(secret, "$2y$")
}
