// Package identity resolves each session to exactly one opaque principal id.
// Anonymous identities are re-issued every session; a durable pre-issued
// token resolves to the same subject across sessions.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tasksync-backend/internal/apperr"
)

// Service exchanges durable tokens for identities and signs session tokens.
type Service struct {
	secret []byte

	// durable maps token ids to bcrypt hashes of their secrets.
	durable map[string]string
}

func New(secret []byte, durable map[string]string) *Service {
	return &Service{secret: secret, durable: durable}
}

// Resolve returns the session's Identity. An empty durable token yields a
// fresh anonymous identity; a valid token yields the identity bound to the
// token's subject; anything else fails and the session stays unauthenticated.
// Resolution runs once, before any store or feed interaction.
func (s *Service) Resolve(ctx context.Context, durableToken string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Authenticationf("resolve: %v", err)
	}

	if durableToken == "" {
		return "anon-" + uuid.NewString(), nil
	}

	tokenID, tokenSecret, ok := strings.Cut(durableToken, ".")
	if !ok {
		return "", apperr.Authenticationf("malformed durable token")
	}

	hash, ok := s.durable[tokenID]
	if !ok {
		return "", apperr.Authenticationf("unknown durable token %q", tokenID)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(tokenSecret)) != nil {
		return "", apperr.Authenticationf("durable token secret mismatch")
	}

	return "user-" + tokenID, nil
}
