package handler

import (
	"context"
	"log/slog"
	"net/http"

	"shopfloor/internal/model"
	"shopfloor/internal/mw"
)

const sessionHistoryLimit = 20

type sessionLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Session, error)
}

// ListSessionsHandler returns the caller's most recent logins.
func ListSessionsHandler(sessions sessionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := r.Context().Value(mw.UserCtxKey).(string)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := sessions.ListByUser(r.Context(), userID, sessionHistoryLimit)
		if err != nil {
			slog.Error("list sessions failed", "user", userID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(list) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}
