package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"shopfloor/internal/mw"
	"shopfloor/internal/notify"
	"shopfloor/internal/service"
)

// pongWait is how long a client may stay silent before it is dropped.
const pongWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationsHandler upgrades to a websocket that receives the session's
// notifications. Browsers cannot set headers on websocket requests, so the
// token comes in ?token=.
func NotificationsHandler(jwtSecret string, registry *service.SessionRegistry, hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			http.Error(w, "token is required", http.StatusUnauthorized)
			return
		}

		userID, sessionID, err := mw.ParseToken(jwtSecret, tokenString)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		if ls, ok := registry.Get(sessionID); !ok || ls.UserID != userID {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		hub.Register(sessionID, conn)
		defer func() {
			hub.Unregister(sessionID, conn)
			conn.Close()
		}()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPingHandler(func(appData string) error {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Warn("websocket closed unexpectedly", "session", sessionID, "error", err)
				}
				return
			}
		}
	}
}
