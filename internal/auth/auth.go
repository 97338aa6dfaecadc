// Package auth resolves the user behind a request. Identity itself lives in
// an external provider; this package only verifies its HS256 tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mathfly-quiz-service/internal/domain"
)

type contextKey string

const userIDKey contextKey = "user_id"

// WithUser attaches a user id to ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID extracts the user id attached by WithUser.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Verifier authenticates requests. With an empty secret it trusts the
// X-User-ID header (or userId query param), which is meant for local runs.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// IssueToken signs a token for userID. Used by tooling and tests.
func (v *Verifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate returns the user id carried by r.
func (v *Verifier) Authenticate(r *http.Request) (string, error) {
	if len(v.secret) == 0 {
		id := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if id == "" {
			id = strings.TrimSpace(r.URL.Query().Get("userId"))
		}
		if id == "" {
			return "", domain.ErrUnauthenticated
		}
		return id, nil
	}

	raw := bearerToken(r)
	if raw == "" {
		return "", domain.ErrUnauthenticated
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", domain.ErrUnauthenticated
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", domain.ErrUnauthenticated
	}
	return sub, nil
}

// Middleware rejects unauthenticated requests and attaches the user id.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := v.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

// Browsers cannot set headers on websocket upgrades, so the token may also
// arrive as a query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
