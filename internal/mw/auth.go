package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"shopfloor/internal/service"
)

type contextKey string

const (
	UserCtxKey    contextKey = "user_id"
	SessionCtxKey contextKey = "session"
)

var ErrInvalidClaims = errors.New("token lacks user_id or session_id")

// ParseToken validates a portal token and returns its user and session IDs.
func ParseToken(jwtSecret, tokenString string) (userID, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidClaims
	}
	userID, _ = claims["user_id"].(string)
	sessionID, _ = claims["session_id"].(string)
	if userID == "" || sessionID == "" {
		return "", "", ErrInvalidClaims
	}
	return userID, sessionID, nil
}

// AuthMiddleware accepts a Bearer token only while its session is still
// live in the registry.
func AuthMiddleware(jwtSecret string, registry *service.SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			userID, sessionID, err := ParseToken(jwtSecret, parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ls, ok := registry.Get(sessionID)
			if !ok || ls.UserID != userID {
				http.Error(w, "session expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, userID)
			ctx = context.WithValue(ctx, SessionCtxKey, ls)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Session returns the live session AuthMiddleware attached to ctx.
func Session(ctx context.Context) (*service.LiveSession, bool) {
	ls, ok := ctx.Value(SessionCtxKey).(*service.LiveSession)
	return ls, ok
}
