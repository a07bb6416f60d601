package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shopfloor/internal/model"
	"shopfloor/internal/odata"
	"shopfloor/internal/orders"
)

// screen is the cached collection behind one list view of a session.
type screen struct {
	state     model.ScreenState
	orders    []model.Order
	seq       uint64
	fetchedAt time.Time
}

type OrderService struct {
	client *odata.Client
	loc    *time.Location
	now    func() time.Time
}

func NewOrderService(client *odata.Client, loc *time.Location) *OrderService {
	return &OrderService{client: client, loc: loc, now: time.Now}
}

type ListResult struct {
	Kind      model.Kind
	State     model.ScreenState
	Orders    []model.Order
	Count     int
	Total     int
	FetchedAt time.Time
	// Summary counts the whole cached collection, ignoring query and month.
	Summary model.CountFamily
}

// Activate fetches the kind's full collection into the session's screen.
// The screen is Loading until the fetch completes. When fetches overlap the
// last one issued wins and earlier completions are dropped. A failed fetch
// keeps whatever the screen held before; a screen that never loaded stays
// unloaded so the next List fetches again.
func (s *OrderService) Activate(ctx context.Context, ls *LiveSession, kind model.Kind) error {
	if !s.client.Available() {
		return ErrMissingBackend
	}

	ls.mu.Lock()
	sc := ls.screen(kind)
	sc.seq++
	seq := sc.seq
	sc.state = model.ScreenLoading
	ls.mu.Unlock()

	records, err := s.client.ReadCollection(ctx, ls.SAP, kind.EntitySet(), "")

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if sc.seq != seq {
		slog.Debug("superseded fetch discarded", "session", ls.ID, "kind", kind)
		return nil
	}
	if err != nil {
		sc.state = model.ScreenReady
		if sc.fetchedAt.IsZero() {
			sc.state = ""
		}
		slog.Error("order fetch failed", "session", ls.ID, "kind", kind, "error", err)
		return fmt.Errorf("fetch %s: %w", kind.EntitySet(), err)
	}
	sc.state = model.ScreenReady
	sc.orders = orders.Ingest(kind, records, s.loc)
	sc.fetchedAt = s.now()
	slog.Info("orders loaded", "session", ls.ID, "kind", kind, "count", len(sc.orders))
	return nil
}

// List filters the screen's cached collection, fetching it until it has
// loaded once.
func (s *OrderService) List(ctx context.Context, ls *LiveSession, kind model.Kind, query string, month orders.Month) (*ListResult, error) {
	ls.mu.Lock()
	loaded := !ls.screen(kind).fetchedAt.IsZero()
	ls.mu.Unlock()

	if !loaded {
		if err := s.Activate(ctx, ls, kind); err != nil {
			return nil, err
		}
	}

	ls.mu.Lock()
	sc := ls.screen(kind)
	cached := sc.orders
	state := sc.state
	fetchedAt := sc.fetchedAt
	ls.mu.Unlock()

	filtered, n := orders.Filter(cached, query, month)
	return &ListResult{
		Kind:      kind,
		State:     state,
		Orders:    filtered,
		Count:     n,
		Total:     len(cached),
		FetchedAt: fetchedAt,
		Summary:   orders.Counts(kind, cached, s.now(), s.loc),
	}, nil
}

// Refresh puts the screen back to Loading and fetches it again.
func (s *OrderService) Refresh(ctx context.Context, ls *LiveSession, kind model.Kind) error {
	return s.Activate(ctx, ls, kind)
}

func (s *OrderService) State(ls *LiveSession, kind model.Kind) model.ScreenState {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.screen(kind).state
}
