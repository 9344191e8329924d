package identity

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Wrap guards a handler: requests without a valid session token are rejected
// before any store or feed code runs.
func (s *Service) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		id, err := s.ParseSession(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next(w, r.WithContext(ctx))
	}
}

func FromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
