package analytics

import (
	"context"
	"sync"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"
)

type reportFilter struct {
	typ        models.ReportType
	start, end time.Time
}

// Reports lists stored report snapshots and generates new ones
type Reports struct {
	*resource.Resource[models.Report, *models.Report]
	store docstore.Store
	now   func() time.Time

	mu     sync.Mutex
	filter *reportFilter
}

func NewReports(store docstore.Store) *Reports {
	r := &Reports{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	r.Resource = resource.New[models.Report](store, resource.Options[models.Report]{
		Collection: models.ReportsCollection,
		Scope:      r.scope,
		Prepend:    true,
		Owns:       r.matches,
		Now:        func() time.Time { return r.now() },
	})
	return r
}

// matches reports whether a new report belongs in the listed window
func (r *Reports) matches(_ *models.User, report models.Report) bool {
	r.mu.Lock()
	f := r.filter
	r.mu.Unlock()
	if f == nil {
		return true
	}
	return report.Type == f.typ && !report.StartDate.Before(f.start) && !report.EndDate.After(f.end)
}

// scope lists the last requested window, or every report when none was
// requested yet
func (r *Reports) scope(p *models.User) (docstore.Query, bool) {
	if !canView(p) {
		return docstore.Query{}, false
	}
	r.mu.Lock()
	f := r.filter
	r.mu.Unlock()

	q := docstore.Query{}
	if f != nil {
		q = q.Where("type", docstore.Eq, f.typ).
			Where("startDate", docstore.Gte, f.start).
			Where("endDate", docstore.Lte, f.end)
	}
	return q.OrderBy("startDate", docstore.Desc), true
}

// FetchWindow lists reports of typ whose window lies within [start, end],
// newest first. The filter sticks for later session-driven refetches.
func (r *Reports) FetchWindow(ctx context.Context, typ models.ReportType, start, end time.Time) error {
	r.mu.Lock()
	r.filter = &reportFilter{typ: typ, start: start, end: end}
	r.mu.Unlock()
	return r.Fetch(ctx)
}

// Generate computes the metrics for [start, end] and persists them as a new
// report, prepended to the list
func (r *Reports) Generate(ctx context.Context, typ models.ReportType, start, end time.Time) (models.Report, error) {
	if !canView(r.Principal()) {
		return models.Report{}, resource.ErrForbidden
	}
	deliveries, err := loadDeliveries(ctx, r.store, start, end)
	if err != nil {
		return models.Report{}, r.RecordError("Generate", err)
	}
	s := Summarize(deliveries, DefaultTopProducts)
	return r.Create(ctx, models.Report{
		Type:                typ,
		StartDate:           start,
		EndDate:             end,
		TotalDeliveries:     s.TotalDeliveries,
		CompletedDeliveries: s.CompletedDeliveries,
		CancelledDeliveries: s.CancelledDeliveries,
		TotalRevenue:        s.TotalRevenue,
		AverageDeliveryTime: s.AverageDeliveryTime,
		TopProducts:         s.TopProducts,
	})
}

// GenerateFor generates the report of typ for the calendar period
// containing date
func (r *Reports) GenerateFor(ctx context.Context, typ models.ReportType, date time.Time) (models.Report, error) {
	start, end, err := ReportWindow(typ, date)
	if err != nil {
		return models.Report{}, err
	}
	return r.Generate(ctx, typ, start, end)
}

func (r *Reports) GenerateDaily(ctx context.Context, date time.Time) (models.Report, error) {
	return r.GenerateFor(ctx, models.ReportDaily, date)
}

func (r *Reports) GenerateWeekly(ctx context.Context, date time.Time) (models.Report, error) {
	return r.GenerateFor(ctx, models.ReportWeekly, date)
}

func (r *Reports) GenerateMonthly(ctx context.Context, date time.Time) (models.Report, error) {
	return r.GenerateFor(ctx, models.ReportMonthly, date)
}
