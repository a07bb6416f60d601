package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"shopfloor/internal/model"
	"shopfloor/internal/notify"
	"shopfloor/internal/odata"
	"shopfloor/internal/orders"
)

const startDateField = "Basicstartdate"

type Notifier interface {
	Notify(sessionID string, n notify.Notification)
}

type DashboardService struct {
	client      *odata.Client
	notifier    Notifier
	loc         *time.Location
	concurrency int
	now         func() time.Time
}

func NewDashboardService(client *odata.Client, notifier Notifier, loc *time.Location, concurrency int) *DashboardService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DashboardService{
		client:      client,
		notifier:    notifier,
		loc:         loc,
		concurrency: concurrency,
		now:         time.Now,
	}
}

type counter string

const (
	counterMTD   counter = "MTD"
	counterYTD   counter = "YTD"
	counterTotal counter = "Total"
)

type countRead struct {
	kind    model.Kind
	counter counter
	rng     *orders.Range
}

// Load reads the MTD, YTD and Total counts of both order kinds as one
// batch. Every read settles on its own: a failed read counts 0 and is
// reported in the family's Errors without affecting the others.
// LastUpdated is taken once the whole batch has settled.
func (s *DashboardService) Load(ctx context.Context, ls *LiveSession) (*model.Dashboard, error) {
	if !s.client.Available() {
		return nil, ErrMissingBackend
	}

	now := s.now()
	mtd := orders.MonthToDate(now, s.loc)
	ytd := orders.YearToDate(now, s.loc)

	var reads []countRead
	for _, kind := range []model.Kind{model.KindPlanned, model.KindProduction} {
		reads = append(reads,
			countRead{kind: kind, counter: counterMTD, rng: &mtd},
			countRead{kind: kind, counter: counterYTD, rng: &ytd},
			countRead{kind: kind, counter: counterTotal},
		)
	}

	counts := make([]int, len(reads))
	errs := make([]error, len(reads))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, rd := range reads {
		i, rd := i, rd
		g.Go(func() error {
			counts[i], errs[i] = s.count(ctx, ls, rd)
			return nil
		})
	}
	_ = g.Wait()

	dash := &model.Dashboard{
		Planned:    model.CountFamily{Kind: model.KindPlanned},
		Production: model.CountFamily{Kind: model.KindProduction},
	}
	for i, rd := range reads {
		family := &dash.Planned
		if rd.kind == model.KindProduction {
			family = &dash.Production
		}

		if errs[i] != nil {
			msg := readErrorMessage(rd.kind, rd.counter)
			slog.Error(msg, "session", ls.ID, "error", errs[i])
			family.Errors = append(family.Errors, msg)
			if s.notifier != nil {
				s.notifier.Notify(ls.ID, notify.Notification{Level: notify.LevelError, Message: msg})
			}
			continue
		}
		slog.Info("dashboard count loaded", "kind", rd.kind, "counter", rd.counter, "count", counts[i])

		switch rd.counter {
		case counterMTD:
			family.MTD = counts[i]
		case counterYTD:
			family.YTD = counts[i]
		case counterTotal:
			family.Total = counts[i]
		}
	}
	dash.LastUpdated = s.now()
	return dash, nil
}

// count reads one counter. Ranged reads narrow the request with a $filter
// and still count locally on the normalized dates.
func (s *DashboardService) count(ctx context.Context, ls *LiveSession, rd countRead) (int, error) {
	filter := ""
	if rd.rng != nil {
		filter = odata.DateRangeFilter(startDateField, rd.rng.Start, rd.rng.End)
	}
	records, err := s.client.ReadCollection(ctx, ls.SAP, rd.kind.EntitySet(), filter)
	if err != nil {
		return 0, err
	}
	if rd.rng == nil {
		return len(records), nil
	}
	return orders.CountInRange(orders.Ingest(rd.kind, records, s.loc), *rd.rng), nil
}

func readErrorMessage(kind model.Kind, c counter) string {
	if kind == model.KindProduction {
		return fmt.Sprintf("Unable to load %s Production Orders. Please contact your administrator.", c)
	}
	return fmt.Sprintf("Error loading data (Planned %s)", c)
}
