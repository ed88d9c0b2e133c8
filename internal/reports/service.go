package reports

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/delivery"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

const (
	exportPageSize = 100
	// MaxExportRows caps a single CSV or PDF export.
	MaxExportRows = 5000
)

// ErrInvalidDateRange is returned when the start date falls after the end date.
var ErrInvalidDateRange = errors.New("start date must be on or before end date")

// RepositoryPort is the remote API surface the service needs.
type RepositoryPort interface {
	Summary(ctx context.Context, id apiclient.Identity) (Summary, error)
	EnhancedSummary(ctx context.Context, id apiclient.Identity) (EnhancedSummary, error)
	PurchaseHistory(ctx context.Context, id apiclient.Identity, f PurchaseFilter) (shared.ListResponse[PurchaseHistoryItem], error)
	DispatchHistory(ctx context.Context, id apiclient.Identity, f DispatchFilter) (shared.ListResponse[DispatchHistoryItem], error)
	Movers(ctx context.Context, id apiclient.Identity, fast bool, f MoversFilter) (shared.ListResponse[MoverItem], error)
	Products(ctx context.Context, id apiclient.Identity) ([]Choice, error)
	Suppliers(ctx context.Context, id apiclient.Identity) ([]Choice, error)
}

// Service reads reports and prepares them for export.
type Service struct {
	repo       RepositoryPort
	validate   *validator.Validate
	now        func() time.Time
	logger     *slog.Logger
	dashboards singleflight.Group
}

// NewService constructs a reports service. A nil logger falls back to
// slog.Default.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: shared.NewValidator(), now: time.Now, logger: logger}
}

// Dashboard fetches both summaries concurrently and derives the pending
// purchase order and open dispatch counters. Concurrent loads for the same
// user share one pair of upstream calls.
func (s *Service) Dashboard(ctx context.Context, id apiclient.Identity) (Dashboard, error) {
	if id == nil || id.UserID() == "" {
		return s.loadDashboard(ctx, id)
	}
	userID := id.UserID()
	ch := s.dashboards.DoChan("dashboard:"+userID, func() (any, error) {
		d, err := s.loadDashboard(context.WithoutCancel(ctx), id)
		return sharedDashboard{dashboard: d, origin: id}, err
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-ch:
		out := res.Val.(sharedDashboard)
		if res.Err != nil {
			// The client already cleared the identity the call ran with.
			if out.origin != id && errors.Is(res.Err, apiclient.ErrInvalidUser) {
				if err := id.Clear(ctx); err != nil {
					s.logger.Warn("clear invalid session", slog.String("user_id", userID), slog.Any("error", err))
				}
			}
			return Dashboard{}, res.Err
		}
		return out.dashboard, nil
	}
}

// sharedDashboard carries the identity a coalesced load ran with.
type sharedDashboard struct {
	dashboard Dashboard
	origin    apiclient.Identity
}

func (s *Service) loadDashboard(ctx context.Context, id apiclient.Identity) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.repo.Summary(gctx, id)
		d.Summary = summary
		return err
	})
	g.Go(func() error {
		enhanced, err := s.repo.EnhancedSummary(gctx, id)
		d.Enhanced = enhanced
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.PendingPOs = CountStatuses(d.Enhanced.PurchaseOrderStatuses, pendingPOStatuses...)
	d.OpenDispatches = CountStatuses(d.Enhanced.DispatchOrderStatuses, openDispatchStatuses...)
	return d, nil
}

// Pickers loads the product and supplier filter choices concurrently.
func (s *Service) Pickers(ctx context.Context, id apiclient.Identity, suppliers bool) (Pickers, error) {
	var p Pickers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := s.repo.Products(gctx, id)
		p.Products = products
		return err
	})
	if suppliers {
		g.Go(func() error {
			list, err := s.repo.Suppliers(gctx, id)
			p.Suppliers = list
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Pickers{}, err
	}
	return p, nil
}

// PurchaseHistory returns one page of purchased lines.
func (s *Service) PurchaseHistory(ctx context.Context, id apiclient.Identity, f PurchaseFilter) (shared.ListResponse[PurchaseHistoryItem], error) {
	if err := s.checkRange(f.DateRange); err != nil {
		return shared.ListResponse[PurchaseHistoryItem]{}, err
	}
	return s.repo.PurchaseHistory(ctx, id, f)
}

// DispatchHistory returns one page of dispatched lines. An unknown recipient
// type is dropped.
func (s *Service) DispatchHistory(ctx context.Context, id apiclient.Identity, f DispatchFilter) (shared.ListResponse[DispatchHistoryItem], error) {
	if !delivery.RecipientType(f.RecipientType).IsValid() {
		f.RecipientType = ""
	}
	if err := s.checkRange(f.DateRange); err != nil {
		return shared.ListResponse[DispatchHistoryItem]{}, err
	}
	return s.repo.DispatchHistory(ctx, id, f)
}

// Movers returns one page of the fast or slow movers ranking. The window
// defaults to the last 30 days.
func (s *Service) Movers(ctx context.Context, id apiclient.Identity, fast bool, f MoversFilter) (shared.ListResponse[MoverItem], error) {
	f.Window = NormalizeWindow(f.Window)
	return s.repo.Movers(ctx, id, fast, f)
}

// AllPurchaseHistory collects every page of the filtered purchase history.
func (s *Service) AllPurchaseHistory(ctx context.Context, id apiclient.Identity, f PurchaseFilter) ([]PurchaseHistoryItem, error) {
	return collect(ctx, func(page int) (shared.ListResponse[PurchaseHistoryItem], error) {
		f.Page, f.PageSize = page, exportPageSize
		return s.PurchaseHistory(ctx, id, f)
	})
}

// AllDispatchHistory collects every page of the filtered dispatch history.
func (s *Service) AllDispatchHistory(ctx context.Context, id apiclient.Identity, f DispatchFilter) ([]DispatchHistoryItem, error) {
	return collect(ctx, func(page int) (shared.ListResponse[DispatchHistoryItem], error) {
		f.Page, f.PageSize = page, exportPageSize
		return s.DispatchHistory(ctx, id, f)
	})
}

// AllMovers collects every page of a movers ranking.
func (s *Service) AllMovers(ctx context.Context, id apiclient.Identity, fast bool, f MoversFilter) ([]MoverItem, error) {
	return collect(ctx, func(page int) (shared.ListResponse[MoverItem], error) {
		f.Page, f.PageSize = page, exportPageSize
		return s.Movers(ctx, id, fast, f)
	})
}

// GeneratedAt stamps exported documents.
func (s *Service) GeneratedAt() time.Time {
	return s.now()
}

// NormalizeWindow maps an unknown window to the 30 day default.
func NormalizeWindow(w TimeWindow) TimeWindow {
	if w.IsValid() {
		return w
	}
	return Window30Days
}

// collect walks pages until the envelope is exhausted or MaxExportRows is
// reached.
func collect[T any](ctx context.Context, fetch func(page int) (shared.ListResponse[T], error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if len(all) >= MaxExportRows {
			return all[:MaxExportRows], nil
		}
		if len(res.Items) == 0 || page >= res.Pagination().TotalPages {
			return all, nil
		}
	}
}

func (s *Service) checkRange(r DateRange) error {
	if err := shared.Validate(s.validate, r); err != nil {
		return err
	}
	if r.StartDate != "" && r.EndDate != "" && r.StartDate > r.EndDate {
		return ErrInvalidDateRange
	}
	return nil
}
