package orders

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubFetcher struct {
	payment      *mercadopago.Payment
	err          error
	getCalls     []string
	searchCalls  []string
	searchResult *mercadopago.Payment
}

func (s *stubFetcher) GetPayment(_ context.Context, id string) (*mercadopago.Payment, error) {
	s.getCalls = append(s.getCalls, id)
	return s.payment, s.err
}

func (s *stubFetcher) FindPaymentByExternalReference(_ context.Context, ref string) (*mercadopago.Payment, error) {
	s.searchCalls = append(s.searchCalls, ref)
	return s.searchResult, s.err
}

func (s *stubFetcher) calls() int { return len(s.getCalls) + len(s.searchCalls) }

type serviceFixture struct {
	svc     Service
	repo    Repository
	fetcher *stubFetcher
	reg     *prometheus.Registry
}

func newServiceFixture(t *testing.T, policy TransitionPolicy) serviceFixture {
	t.Helper()
	repo := NewRepository(setupOrdersTestDB(t))
	fetcher := &stubFetcher{}
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Payments: fetcher,
		Policy:   policy,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics:  metrics.NewPaymentMetrics(reg),
	})
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, fetcher: fetcher, reg: reg}
}

func approvedPayment(id string) *mercadopago.Payment {
	return &mercadopago.Payment{
		ID:     json.Number(id),
		Status: enums.PaymentStatusApproved,
		Raw:    json.RawMessage(`{"id":` + id + `,"status":"approved"}`),
	}
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(nil), Payments: &stubFetcher{}})
	require.Error(t, err)
}

func TestGetPaymentStatusNotFound(t *testing.T) {
	f := newServiceFixture(t, nil)
	_, err := f.svc.GetPaymentStatus(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetPaymentStatusWithoutPaymentSkipsGateway(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusPending, nil)

	res, err := f.svc.GetPaymentStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, res.Status)
	assert.False(t, res.Updated)
	assert.Zero(t, f.fetcher.calls())
}

func TestGetPaymentStatusSwallowsGatewayErrors(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusProcessing, strPtr("777"))
	f.fetcher.err = pkgerrors.New(pkgerrors.CodeDependency, "gateway down")

	res, err := f.svc.GetPaymentStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, res.Status)
	assert.False(t, res.Updated)
	assert.Equal(t, []string{"777"}, f.fetcher.getCalls)
	count, err := testutil.GatherAndCount(f.reg, "storefront_gateway_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetPaymentStatusPersistsChange(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusPending, strPtr("777"))
	f.fetcher.payment = approvedPayment("777")

	res, err := f.svc.GetPaymentStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, enums.OrderStatusCompleted, res.Status)

	stored, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
	assert.JSONEq(t, `{"id":777,"status":"approved"}`, string(stored.PaymentDetails))

	// a second poll sees the same status and changes nothing
	res, err = f.svc.GetPaymentStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, res.Updated)
}

func TestGetPaymentStatusSearchesWhileAwaitingPayment(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusPending, nil)
	require.NoError(t, f.repo.AttachPreference(context.Background(), order.ID, "pref-1", enums.OrderStatusPending))

	res, err := f.svc.GetPaymentStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, []string{order.ID.String()}, f.fetcher.searchCalls)
	assert.Empty(t, f.fetcher.getCalls)

	f.fetcher.searchResult = approvedPayment("991")
	res, err = f.svc.GetPaymentStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, res.Updated)

	stored, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "991", *stored.PaymentID)
}

func TestApplyPaymentIsIdempotent(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	order := seedOrder(t, f.repo, time.Now().Add(-time.Hour).UTC(), enums.OrderStatusPending, strPtr("pref"))

	res, err := f.svc.ApplyPayment(ctx, order.ID, approvedPayment("42"), metrics.SourceWebhook)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, res.Previous)
	assert.Equal(t, enums.OrderStatusCompleted, res.Status)

	first, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	res, err = f.svc.ApplyPayment(ctx, order.ID, approvedPayment("42"), metrics.SourceWebhook)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	second, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.PaymentID, *second.PaymentID)
	assert.JSONEq(t, string(first.PaymentDetails), string(second.PaymentDetails))
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestApplyPaymentMissingOrder(t *testing.T) {
	f := newServiceFixture(t, nil)
	_, err := f.svc.ApplyPayment(context.Background(), uuid.New(), approvedPayment("1"), metrics.SourceWebhook)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyPaymentStrictPolicySkipsRegression(t *testing.T) {
	f := newServiceFixture(t, StrictTransitions{})
	ctx := context.Background()
	order := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusRefunded, strPtr("42"))

	pending := &mercadopago.Payment{ID: "42", Status: enums.PaymentStatusPending}
	res, err := f.svc.ApplyPayment(ctx, order.ID, pending, metrics.SourceWebhook)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, enums.OrderStatusRefunded, res.Status)

	stored, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, stored.Status)
}

func TestDetailReconcilesFirst(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusPending, strPtr("5"))
	f.fetcher.payment = &mercadopago.Payment{ID: "5", Status: enums.PaymentStatusRejected, Raw: json.RawMessage(`{"id":5}`)}

	detail, err := f.svc.Detail(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, detail.Status)
	require.Len(t, detail.Items, 1)
	assert.JSONEq(t, `{"id":5}`, string(detail.PaymentDetails))

	summary, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, summary.Status)
}

func TestListPagesAndFilters(t *testing.T) {
	f := newServiceFixture(t, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, f.repo, base.Add(time.Duration(i)*time.Hour), enums.OrderStatusPending, nil)
	}

	list, err := f.svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 3)
	assert.Empty(t, list.NextCursor)
	assert.Equal(t, 2, list.Orders[0].TotalItems)

	_, err = f.svc.List(context.Background(), ListParams{Params: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bogus := enums.OrderStatus("pendiente")
	_, err = f.svc.List(context.Background(), ListParams{Status: &bogus})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCancelAbandoned(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	old := seedOrder(t, f.repo, time.Now().Add(-5*time.Hour).UTC(), enums.OrderStatusPending, nil)
	recent := seedOrder(t, f.repo, time.Now().UTC(), enums.OrderStatusPending, nil)

	n, err := f.svc.CancelAbandoned(ctx, time.Now().Add(-time.Hour).UTC(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.repo.FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	stored, err = f.repo.FindByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
}

func TestReconcileRejectsNilOrder(t *testing.T) {
	f := newServiceFixture(t, nil)
	_, err := f.svc.Reconcile(context.Background(), nil, metrics.SourceReconcile)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReconcileQueueRotatesThroughUnpaidBacklog(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	clock := time.Now().Add(-24 * time.Hour).UTC()
	f.repo.(*repository).now = func() time.Time { return clock }

	seen := map[uuid.UUID]int{}
	for i := 0; i < 3; i++ {
		order := seedOrder(t, f.repo, clock.Add(time.Duration(i)*time.Minute), enums.OrderStatusPending, nil)
		require.NoError(t, f.repo.AttachPreference(ctx, order.ID, "pref-"+order.ID.String(), enums.OrderStatusPending))
		seen[order.ID] = 0
	}

	for pass := 0; pass < 3; pass++ {
		clock = clock.Add(time.Hour)
		rows, err := f.repo.ListReconcilable(ctx, clock.Add(-15*time.Minute), 2)
		require.NoError(t, err)
		for i := range rows {
			seen[rows[i].ID]++
			_, err := f.svc.Reconcile(ctx, &rows[i], metrics.SourceReconcile)
			require.NoError(t, err)
		}
	}

	for id, scans := range seen {
		assert.GreaterOrEqual(t, scans, 1, "order %s never reconciled", id)
	}
	assert.Equal(t, 6, f.fetcher.calls())

	for id := range seen {
		stored, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, stored.LastReconciledAt)
		assert.True(t, stored.UpdatedAt.Before(*stored.LastReconciledAt), "poll attempts must not bump updated_at")
	}
}
