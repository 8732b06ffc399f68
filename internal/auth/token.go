package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrMissingHeader = errors.New("missing Authorization header")
	ErrInvalidToken  = errors.New("invalid API token")
)

// TokenValidator checks bearer tokens against the configured API token
type TokenValidator struct {
	token string
}

func NewTokenValidator(token string) *TokenValidator {
	return &TokenValidator{token: token}
}

// Validate compares token in constant time. An unconfigured validator
// rejects everything.
func (v *TokenValidator) Validate(token string) error {
	if v == nil || v.token == "" {
		return errors.New("API token not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Authorize extracts and validates the token of an Authorization header
func (v *TokenValidator) Authorize(authHeader string) error {
	token, err := ExtractToken(authHeader)
	if err != nil {
		return err
	}
	return v.Validate(token)
}

// ExtractToken extracts the token from an Authorization header
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingHeader
	}

	// Support "Bearer {token}" format
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}

	if !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("authorization header must use Bearer scheme")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
