package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

type stubRepo struct {
	summaryErr error
	enhanced   EnhancedSummary
	pages      int
	perPage    int
	dispatch   DispatchFilter
	movers     MoversFilter
	fast       bool
	calls      int
}

func (s *stubRepo) Summary(context.Context, apiclient.Identity) (Summary, error) {
	return Summary{RecentDispatchesCount: 3}, s.summaryErr
}

func (s *stubRepo) EnhancedSummary(context.Context, apiclient.Identity) (EnhancedSummary, error) {
	return s.enhanced, nil
}

func (s *stubRepo) PurchaseHistory(_ context.Context, _ apiclient.Identity, f PurchaseFilter) (shared.ListResponse[PurchaseHistoryItem], error) {
	s.calls++
	items := make([]PurchaseHistoryItem, s.perPage)
	for i := range items {
		items[i] = PurchaseHistoryItem{ID: "ph", Quantity: f.Page}
	}
	return shared.ListResponse[PurchaseHistoryItem]{Page: f.Page, PageSize: f.PageSize, Total: s.pages * f.PageSize, Items: items}, nil
}

func (s *stubRepo) DispatchHistory(_ context.Context, _ apiclient.Identity, f DispatchFilter) (shared.ListResponse[DispatchHistoryItem], error) {
	s.dispatch = f
	return shared.ListResponse[DispatchHistoryItem]{Page: 1, PageSize: f.PageSize}, nil
}

func (s *stubRepo) Movers(_ context.Context, _ apiclient.Identity, fast bool, f MoversFilter) (shared.ListResponse[MoverItem], error) {
	s.fast, s.movers = fast, f
	return shared.ListResponse[MoverItem]{Page: 1, PageSize: f.PageSize}, nil
}

func (s *stubRepo) Products(context.Context, apiclient.Identity) ([]Choice, error) {
	return []Choice{{ID: "p-1", Name: "Gloves"}}, nil
}

func (s *stubRepo) Suppliers(context.Context, apiclient.Identity) ([]Choice, error) {
	return []Choice{{ID: "s-1", Name: "MedSupply"}}, nil
}

func TestDashboardDerivesCounters(t *testing.T) {
	repo := &stubRepo{enhanced: EnhancedSummary{
		PurchaseOrderStatuses: []StatusCount{{"draft", 4}, {"sent", 2}, {"part_received", 1}, {"received", 9}},
		DispatchOrderStatuses: []StatusCount{{"draft", 1}, {"confirmed", 5}, {"delivered", 7}},
	}}
	svc := NewService(repo, nil)

	d, err := svc.Dashboard(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 3, d.PendingPOs)
	assert.Equal(t, 6, d.OpenDispatches)
	assert.Equal(t, 3, d.Summary.RecentDispatchesCount)
}

func TestDashboardFailsWhenEitherSummaryFails(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&stubRepo{summaryErr: boom}, nil)

	_, err := svc.Dashboard(context.Background(), nil)

	assert.ErrorIs(t, err, boom)
}

func TestHistoryRejectsBadDates(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	_, err := svc.PurchaseHistory(context.Background(), nil, PurchaseFilter{DateRange: DateRange{StartDate: "2024-05-10", EndDate: "2024-05-01"}})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.PurchaseHistory(context.Background(), nil, PurchaseFilter{DateRange: DateRange{StartDate: "10/05/2024"}})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "start_date")
}

func TestDispatchHistoryDropsUnknownRecipient(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)

	_, err := svc.DispatchHistory(context.Background(), nil, DispatchFilter{RecipientType: "pharmacy"})

	require.NoError(t, err)
	assert.Empty(t, repo.dispatch.RecipientType)
}

func TestMoversDefaultsWindow(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)

	_, err := svc.Movers(context.Background(), nil, true, MoversFilter{Window: "7d"})

	require.NoError(t, err)
	assert.True(t, repo.fast)
	assert.Equal(t, Window30Days, repo.movers.Window)
}

func TestExportCollectsEveryPage(t *testing.T) {
	repo := &stubRepo{pages: 3, perPage: exportPageSize}
	svc := NewService(repo, nil)

	items, err := svc.AllPurchaseHistory(context.Background(), nil, PurchaseFilter{Page: 7, PageSize: 10})

	require.NoError(t, err)
	assert.Len(t, items, 3*exportPageSize)
	assert.Equal(t, 3, repo.calls)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 3, items[len(items)-1].Quantity)
}

func TestExportIsCapped(t *testing.T) {
	repo := &stubRepo{pages: 1000, perPage: exportPageSize}
	svc := NewService(repo, nil)

	items, err := svc.AllPurchaseHistory(context.Background(), nil, PurchaseFilter{})

	require.NoError(t, err)
	assert.Len(t, items, MaxExportRows)
	assert.Equal(t, MaxExportRows/exportPageSize, repo.calls)
}

func TestExportStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(&stubRepo{pages: 2, perPage: 1}, nil)

	_, err := svc.AllPurchaseHistory(ctx, nil, PurchaseFilter{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteCSVKeepsRawValues(t *testing.T) {
	sheet := PurchaseSheet([]PurchaseHistoryItem{{
		PONumber: "PO-1", SupplierName: "Med, Supply", PurchaseDate: "2024-05-01T08:00:00Z",
		ProductName: "Gloves", Quantity: 1200, UnitCost: "2.50", TotalCost: "3000.00",
	}})
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, sheet))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "PO number", records[0][0])
	assert.Equal(t, []string{"PO-1", "Med, Supply", "2024-05-01", "Gloves", "1200", "2.50", "3000.00"}, records[1])
	assert.Equal(t, []string{"PO-1", "Med, Supply", "01 May 2024", "Gloves", "1,200", "2.50", "3,000.00"}, sheet.Formatted()[0])
}

func TestSheetFilename(t *testing.T) {
	sheet := MoversSheet(nil, true)
	assert.Equal(t, "fast-movers-20240509.pdf", sheet.Filename(time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), "pdf"))
	assert.Equal(t, "Slow Moving Items", MoversSheet(nil, false).Title)
}

type fakeIdentity string

func (f fakeIdentity) UserID() string { return string(f) }
func (fakeIdentity) Clear(context.Context) error { return nil }

type slowRepo struct {
	stubRepo
	started chan struct{}
	release chan struct{}
}

func (s *slowRepo) Summary(ctx context.Context, id apiclient.Identity) (Summary, error) {
	close(s.started)
	<-s.release
	return s.stubRepo.Summary(ctx, id)
}

func TestDashboardReturnsWhenCallerGivesUp(t *testing.T) {
	repo := &slowRepo{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(repo, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Dashboard(ctx, fakeIdentity("u1"))
		done <- err
	}()
	<-repo.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dashboard did not return after cancel")
	}
	close(repo.release)
}

type countingIdentity struct {
	user   string
	clears atomic.Int32
	asked  chan struct{}
	once   sync.Once
}

func newCountingIdentity(user string) *countingIdentity {
	return &countingIdentity{user: user, asked: make(chan struct{})}
}

func (c *countingIdentity) UserID() string {
	c.once.Do(func() { close(c.asked) })
	return c.user
}

func (c *countingIdentity) Clear(context.Context) error {
	c.clears.Add(1)
	return nil
}

// rejectingRepo answers the summary the way the API client does for a
// deactivated user: the calling identity is cleared and the error returned.
type rejectingRepo struct {
	stubRepo
	started   chan struct{}
	release   chan struct{}
	once      sync.Once
	summaries atomic.Int32
}

func (r *rejectingRepo) Summary(ctx context.Context, id apiclient.Identity) (Summary, error) {
	r.summaries.Add(1)
	r.once.Do(func() { close(r.started) })
	<-r.release
	_ = id.Clear(ctx)
	return Summary{}, &apiclient.Error{Status: 401, Message: apiclient.InvalidUserMessage}
}

func TestSharedDashboardClearsEachSessionOnce(t *testing.T) {
	repo := &rejectingRepo{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(repo, nil)
	first, second := newCountingIdentity("u1"), newCountingIdentity("u1")

	errs := make(chan error, 2)
	go func() {
		_, err := svc.Dashboard(context.Background(), first)
		errs <- err
	}()
	<-repo.started
	go func() {
		_, err := svc.Dashboard(context.Background(), second)
		errs <- err
	}()
	<-second.asked
	time.Sleep(50 * time.Millisecond)
	close(repo.release)

	for range 2 {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, apiclient.ErrInvalidUser)
		case <-time.After(time.Second):
			t.Fatal("dashboard did not return")
		}
	}
	assert.Equal(t, int32(1), repo.summaries.Load())
	assert.Equal(t, int32(1), first.clears.Load())
	assert.Equal(t, int32(1), second.clears.Load())
}
