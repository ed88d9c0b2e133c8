package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

type stubRepo struct {
	orders  map[string]Order
	filter  Filter
	created *CreatePayload
	updated *UpdatePayload
	deleted []string
}

func newStubRepo(orders ...Order) *stubRepo {
	s := &stubRepo{orders: map[string]Order{}}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *stubRepo) List(_ context.Context, _ apiclient.Identity, f Filter) (shared.ListResponse[Order], error) {
	s.filter = f
	return shared.ListResponse[Order]{Page: f.Page, PageSize: f.PageSize}, nil
}

func (s *stubRepo) Get(_ context.Context, _ apiclient.Identity, orderID string) (Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, &apiclient.Error{Status: 404, Message: "Dispatch order not found"}
	}
	return o, nil
}

func (s *stubRepo) Create(_ context.Context, _ apiclient.Identity, payload CreatePayload) (Order, error) {
	s.created = &payload
	return Order{ID: "d-new", DispatchNumber: payload.DispatchNumber}, nil
}

func (s *stubRepo) Update(_ context.Context, _ apiclient.Identity, orderID string, payload UpdatePayload) (Order, error) {
	s.updated = &payload
	o := s.orders[orderID]
	o.Status = payload.Status
	return o, nil
}

func (s *stubRepo) Delete(_ context.Context, _ apiclient.Identity, orderID string) error {
	s.deleted = append(s.deleted, orderID)
	return nil
}

func (s *stubRepo) ActiveProducts(context.Context, apiclient.Identity) ([]ProductRef, error) {
	return nil, nil
}

func TestStatusLifecycle(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusConfirmed, true},
		{StatusDraft, StatusDispatched, false},
		{StatusDraft, StatusDraft, true},
		{StatusConfirmed, StatusDispatched, true},
		{StatusConfirmed, StatusDraft, false},
		{StatusDispatched, StatusDelivered, true},
		{StatusDispatched, StatusCancelled, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusDraft, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanMoveTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, StatusCancelled.CanDelete())
	assert.False(t, StatusConfirmed.CanDelete())
	assert.False(t, Status("shipped").IsValid())
}

func TestOrdersDropsUnknownFilters(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	_, err := svc.Orders(context.Background(), nil, Filter{Page: 1, PageSize: 10, Status: "lost", RecipientType: "clinic"})

	require.NoError(t, err)
	assert.Equal(t, Status(""), repo.filter.Status)
	assert.Equal(t, RecipientClinic, repo.filter.RecipientType)
}

func TestCreateNumbersLines(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), nil, CreatePayload{
		DispatchNumber: "DSP-1",
		RecipientName:  "City Hospital",
		RecipientType:  RecipientHospital,
		DispatchDate:   "2024-05-01",
		Lines:          []LinePayload{{ProductID: "p-1", Quantity: 2}, {ProductID: "p-2", Quantity: 5}},
	})

	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, 1, repo.created.Lines[0].LineNumber)
	assert.Equal(t, 2, repo.created.Lines[1].LineNumber)
}

func TestCreateRejectsUnknownRecipientType(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), nil, CreatePayload{
		DispatchNumber: "DSP-1",
		RecipientName:  "Someone",
		RecipientType:  "pharmacy",
		DispatchDate:   "2024-05-01",
		Lines:          []LinePayload{{ProductID: "p-1", Quantity: 1}},
	})

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "recipient_type")
	assert.Nil(t, repo.created)
}

func TestUpdateEnforcesLifecycle(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	base := UpdatePayload{RecipientName: "City Hospital", DispatchDate: "2024-05-01"}

	delivered := Order{ID: "d-1", Status: StatusDelivered}
	_, err := svc.Update(context.Background(), nil, delivered, base)
	assert.ErrorIs(t, err, ErrCannotEdit)

	draft := Order{ID: "d-2", Status: StatusDraft}
	skip := base
	skip.Status = StatusDelivered
	_, err = svc.Update(context.Background(), nil, draft, skip)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Nil(t, repo.updated)

	_, err = svc.Update(context.Background(), nil, draft, base)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, repo.updated.Status)
}

func TestAdvanceKeepsHeader(t *testing.T) {
	phone := "555-0100"
	repo := newStubRepo(Order{
		ID: "d-1", DispatchNumber: "DSP-1", RecipientName: "City Hospital",
		ContactPhone: &phone, DispatchDate: "2024-05-01T00:00:00Z", Status: StatusConfirmed,
	})
	svc := NewService(repo)

	_, err := svc.Advance(context.Background(), nil, "d-1", StatusDispatched)

	require.NoError(t, err)
	assert.Equal(t, StatusDispatched, repo.updated.Status)
	assert.Equal(t, "555-0100", repo.updated.ContactPhone)
	assert.Equal(t, "2024-05-01", repo.updated.DispatchDate)
}

func TestDeleteOnlyDraftOrCancelled(t *testing.T) {
	repo := newStubRepo(
		Order{ID: "d-1", Status: StatusDispatched},
		Order{ID: "d-2", Status: StatusCancelled},
	)
	svc := NewService(repo)

	err := svc.Delete(context.Background(), nil, "d-1")
	assert.True(t, errors.Is(err, ErrCannotDelete))

	require.NoError(t, svc.Delete(context.Background(), nil, "d-2"))
	assert.Equal(t, []string{"d-2"}, repo.deleted)

	err = svc.Delete(context.Background(), nil, "missing")
	assert.Equal(t, 404, apiclient.StatusCode(err))
}

func TestTodayUsesClock(t *testing.T) {
	svc := NewService(newStubRepo())
	svc.now = func() time.Time { return time.Date(2024, 7, 9, 23, 0, 0, 0, time.UTC) }
	assert.Equal(t, "2024-07-09", svc.Today())
}
