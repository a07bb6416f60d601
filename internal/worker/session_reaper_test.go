package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopfloor/internal/notify"
	"shopfloor/internal/odata"
	"shopfloor/internal/service"
)

type fakeExpirer struct {
	loginAt map[string]time.Time
	err     error
	cutoffs []time.Time
}

func (f *fakeExpirer) ExpireBefore(_ context.Context, cutoff, _ time.Time) ([]string, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for id, at := range f.loginAt {
		if at.Before(cutoff) {
			ids = append(ids, id)
			delete(f.loginAt, id)
		}
	}
	return ids, nil
}

type fakeHub struct {
	mu     sync.Mutex
	closed []string
}

func (h *fakeHub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, id)
}

func TestSessionReaper_Reap(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeExpirer{loginAt: map[string]time.Time{
		"old":   now.Add(-9 * time.Hour),
		"fresh": now.Add(-time.Hour),
	}}
	registry := service.NewSessionRegistry()
	registry.Add(service.NewLiveSession("old", "JSMITH", store.loginAt["old"], odata.NewSession()))
	registry.Add(service.NewLiveSession("fresh", "MLEE", store.loginAt["fresh"], odata.NewSession()))
	hub := &fakeHub{}

	r := NewSessionReaper(store, registry, hub, 8*time.Hour, time.Minute)
	r.now = func() time.Time { return now }

	n, err := r.reap(context.Background())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
	if _, ok := registry.Get("old"); ok {
		t.Error("old session still live")
	}
	if _, ok := registry.Get("fresh"); !ok {
		t.Error("fresh session was dropped")
	}
	if len(hub.closed) != 1 || hub.closed[0] != "old" {
		t.Errorf("disconnected = %v, want [old]", hub.closed)
	}
	if want := now.Add(-8 * time.Hour); !store.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoffs[0], want)
	}
}

func TestSessionReaper_NilHub(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeExpirer{loginAt: map[string]time.Time{"old": now.Add(-9 * time.Hour)}}
	registry := service.NewSessionRegistry()
	registry.Add(service.NewLiveSession("old", "JSMITH", store.loginAt["old"], odata.NewSession()))

	var hub *notify.Hub
	r := NewSessionReaper(store, registry, hub, 8*time.Hour, time.Minute)
	r.now = func() time.Time { return now }

	n, err := r.reap(context.Background())
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 1 || registry.Len() != 0 {
		t.Errorf("expired = %d live = %d, want 1 and 0", n, registry.Len())
	}
}

func TestSessionReaper_StoreError(t *testing.T) {
	registry := service.NewSessionRegistry()
	registry.Add(service.NewLiveSession("a", "JSMITH", time.Now(), odata.NewSession()))
	r := NewSessionReaper(&fakeExpirer{err: errors.New("db down")}, registry, nil, time.Hour, time.Minute)

	if _, err := r.reap(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if registry.Len() != 1 {
		t.Error("registry changed despite store failure")
	}
}

func TestSessionReaper_StopsOnCancel(t *testing.T) {
	r := NewSessionReaper(&fakeExpirer{}, service.NewSessionRegistry(), nil, time.Hour, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
