package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shopfloor/internal/mw"
	"shopfloor/internal/odata"
	"shopfloor/internal/service"
)

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	LoginAt   time.Time `json:"login_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func LoginHandler(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := authSvc.Login(r.Context(), req.User, req.Password)
		if err != nil {
			var loginErr *odata.LoginError
			switch {
			case errors.Is(err, service.ErrMissingBackend):
				http.Error(w, msgServiceConnection, http.StatusServiceUnavailable)
			case errors.Is(err, service.ErrEmptyCredentials):
				http.Error(w, "Please enter both user ID and password.", http.StatusBadRequest)
			case errors.As(err, &loginErr):
				http.Error(w, loginErr.Message, http.StatusUnauthorized)
			case errors.Is(err, service.ErrBackendUnreachable):
				http.Error(w, "Network connection failed.", http.StatusBadGateway)
			default:
				slog.Error("login failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Authorization", "Bearer "+res.Token)
		writeJSON(w, http.StatusOK, loginResponse{
			UserID:    res.Session.UserID,
			SessionID: res.Session.ID,
			LoginAt:   res.Session.LoginAt,
			ExpiresAt: res.ExpiresAt,
		})
	}
}

type disconnecter interface {
	Disconnect(sessionID string)
}

func LogoutHandler(authSvc *service.AuthService, hub disconnecter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ls, ok := mw.Session(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		err := authSvc.Logout(r.Context(), ls.ID)
		// The live session is gone even when recording the logout failed.
		if hub != nil {
			hub.Disconnect(ls.ID)
		}
		if err != nil && !errors.Is(err, service.ErrSessionNotFound) {
			slog.Error("logout failed", "session", ls.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
