package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tasksync-backend/internal/apperr"
)

const sessionTTL = 24 * time.Hour

// SessionToken signs a short-lived HS256 token carrying the identity.
func (s *Service) SessionToken(id string) (string, error) {
	claims := jwt.MapClaims{
		"sub": id,
		"exp": time.Now().Add(sessionTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", apperr.Authenticationf("sign session token: %v", err)
	}
	return signed, nil
}

// ParseSession returns the identity a session token was issued for.
func (s *Service) ParseSession(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Authenticationf("invalid session token")
	}

	claims := token.Claims.(jwt.MapClaims)
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", apperr.Authenticationf("session token missing subject")
	}
	return sub, nil
}
