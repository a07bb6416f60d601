package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shopfloor/internal/model"
	"shopfloor/internal/odata"
)

var (
	ErrMissingBackend     = errors.New("backend service is not configured")
	ErrEmptyCredentials   = errors.New("user and password are required")
	ErrBackendUnreachable = errors.New("network connection failed")
	ErrSessionNotFound    = errors.New("session not found")
)

type SessionStore interface {
	Create(ctx context.Context, sess model.Session) error
	Close(ctx context.Context, id string, at time.Time) error
}

type AuthService struct {
	client   *odata.Client
	store    SessionStore
	registry *SessionRegistry
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(client *odata.Client, store SessionStore, registry *SessionRegistry, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		client:   client,
		store:    store,
		registry: registry,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *LiveSession
}

// Login signs the user on to SAP with a fresh session, records the login
// and issues the portal token carrying user_id and session_id.
func (s *AuthService) Login(ctx context.Context, user, password string) (*LoginResult, error) {
	if !s.client.Available() {
		return nil, ErrMissingBackend
	}
	user = strings.TrimSpace(user)
	if user == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	sap := odata.NewSession()
	userID, err := s.client.Login(ctx, sap, user, password)
	if err != nil {
		var loginErr *odata.LoginError
		if errors.As(err, &loginErr) {
			return nil, fmt.Errorf("sap login: %w", err)
		}
		slog.Error("sap login request failed", "user", user, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	loginAt := s.now()
	ls := NewLiveSession(uuid.NewString(), userID, loginAt, sap)
	if err := s.store.Create(ctx, model.Session{ID: ls.ID, UserID: ls.UserID, LoginAt: loginAt}); err != nil {
		sap.Clear()
		return nil, fmt.Errorf("store session: %w", err)
	}

	expiresAt := loginAt.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    ls.UserID,
		"session_id": ls.ID,
		"iat":        jwt.NewNumericDate(loginAt),
		"exp":        jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		sap.Clear()
		_ = s.store.Close(ctx, ls.ID, s.now())
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.registry.Add(ls)
	slog.Info("user logged in", "user", ls.UserID, "session", ls.ID)
	return &LoginResult{Token: signed, ExpiresAt: expiresAt, Session: ls}, nil
}

// Logout drops the live session, which clears its CSRF token and cookies.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	ls, ok := s.registry.Remove(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.store.Close(ctx, sessionID, s.now()); err != nil {
		return err
	}
	slog.Info("user logged out", "user", ls.UserID, "session", sessionID)
	return nil
}
