package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shopfloor/internal/service"
)

type SessionExpirer interface {
	ExpireBefore(ctx context.Context, cutoff, at time.Time) ([]string, error)
}

type disconnecter interface {
	Disconnect(sessionID string)
}

// SessionReaper ends sessions older than the TTL: they are closed in the
// store, dropped from the registry and their websocket is closed.
type SessionReaper struct {
	store    SessionExpirer
	registry *service.SessionRegistry
	hub      disconnecter
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSessionReaper(store SessionExpirer, registry *service.SessionRegistry, hub disconnecter, ttl, interval time.Duration) *SessionReaper {
	return &SessionReaper{
		store:    store,
		registry: registry,
		hub:      hub,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

func (w *SessionReaper) Start(ctx context.Context) {
	slog.Info("starting session reaper", "ttl", w.ttl, "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			if n, err := w.reap(ctx); err != nil {
				slog.Error("session reaping failed", "error", err)
			} else if n > 0 {
				slog.Info("sessions expired", "count", n)
			}
		}
	}
}

func (w *SessionReaper) reap(ctx context.Context) (int, error) {
	now := w.now()
	ids, err := w.store.ExpireBefore(ctx, now.Add(-w.ttl), now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}

	for _, id := range ids {
		if _, ok := w.registry.Remove(id); ok {
			slog.Info("session expired", "session", id)
		}
		if w.hub != nil {
			w.hub.Disconnect(id)
		}
	}
	return len(ids), nil
}
