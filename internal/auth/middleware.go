package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/repository"
)

type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Middleware resolves the bearer token into a user and stores it in the
// request context. Requests without a valid token get 401.
func Middleware(tokens *TokenIssuer, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httputil.WriteJSONError(w, ErrUnauthenticated.Error(), http.StatusUnauthorized)
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				httputil.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			u, err := users.GetUser(r.Context(), userID)
			if errors.Is(err, repository.ErrNotFound) {
				httputil.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			if err != nil {
				log.Printf("[AUTH] failed to load user %d: %v", userID, err)
				httputil.WriteJSONError(w, "failed to authenticate", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
