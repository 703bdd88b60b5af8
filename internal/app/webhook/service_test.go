package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nimex/internal/domain"
)

type fakeEscrowService struct {
	created []*domain.Order
}

func (f *fakeEscrowService) CreateForOrder(ctx context.Context, order *domain.Order) (*domain.EscrowTransaction, error) {
	f.created = append(f.created, order)
	fee, vendor := domain.SplitAmount(order.TotalAmount)
	return &domain.EscrowTransaction{
		ID: "esc-new", OrderID: order.ID, TotalAmount: order.TotalAmount,
		PlatformFee: fee, VendorAmount: vendor, Status: domain.EscrowStatusHeld,
	}, nil
}

func (f *fakeEscrowService) Release(ctx context.Context, orderID, releaseType, notes, performedBy string) (*domain.EscrowTransaction, error) {
	return nil, nil
}

func (f *fakeEscrowService) Refund(ctx context.Context, orderID, reason, performedBy string) (*domain.EscrowTransaction, error) {
	return nil, nil
}

type fakeOrderRepo struct {
	order      *domain.Order
	markedPaid []string
}

func (f *fakeOrderRepo) GetByIDTx(ctx context.Context, q domain.Querier, orderID string) (*domain.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, domain.ErrOrderNotFound
	}
	o := *f.order
	return &o, nil
}

func (f *fakeOrderRepo) MarkPaidTx(ctx context.Context, q domain.Querier, orderID, ref, method string, at time.Time) error {
	f.markedPaid = append(f.markedPaid, orderID)
	return nil
}

func (f *fakeOrderRepo) SetEscrowTx(ctx context.Context, q domain.Querier, orderID, escrowID string, status domain.EscrowStatus) error {
	return nil
}

func (f *fakeOrderRepo) MarkEscrowReleasedTx(ctx context.Context, q domain.Querier, orderID string, at time.Time) error {
	return nil
}

func (f *fakeOrderRepo) MarkRefundedTx(ctx context.Context, q domain.Querier, orderID string, at time.Time) error {
	return nil
}

type subscriptionUpdate struct {
	vendorID string
	plan     string
	status   domain.SubscriptionStatus
	start    time.Time
	end      time.Time
}

type fakeVendorRepo struct {
	subUpdates    []subscriptionUpdate
	statusUpdates map[string]domain.SubscriptionStatus
}

func (f *fakeVendorRepo) GetByIDTx(ctx context.Context, q domain.Querier, vendorID string) (*domain.Vendor, error) {
	return &domain.Vendor{ID: vendorID}, nil
}

func (f *fakeVendorRepo) CreditWalletTx(ctx context.Context, q domain.Querier, vendorID string, newBalance float64) error {
	return nil
}

func (f *fakeVendorRepo) UpdateSubscriptionTx(ctx context.Context, q domain.Querier, vendorID, plan string, status domain.SubscriptionStatus, start, end time.Time) error {
	f.subUpdates = append(f.subUpdates, subscriptionUpdate{vendorID, plan, status, start, end})
	return nil
}

func (f *fakeVendorRepo) SetSubscriptionStatusTx(ctx context.Context, q domain.Querier, vendorID string, status domain.SubscriptionStatus) error {
	if f.statusUpdates == nil {
		f.statusUpdates = map[string]domain.SubscriptionStatus{}
	}
	f.statusUpdates[vendorID] = status
	return nil
}

type payoutUpdate struct {
	payoutID      string
	status        domain.PayoutStatus
	failureReason string
}

type fakePayoutRepo struct {
	payout  *domain.Payout
	updates []payoutUpdate
}

func (f *fakePayoutRepo) GetByTransferReferenceTx(ctx context.Context, q domain.Querier, ref string) (*domain.Payout, error) {
	if f.payout == nil || f.payout.TransferReference != ref {
		return nil, domain.ErrPayoutNotFound
	}
	p := *f.payout
	return &p, nil
}

func (f *fakePayoutRepo) UpdateStatusTx(ctx context.Context, q domain.Querier, payoutID string, status domain.PayoutStatus, failureReason string, completedAt *time.Time) error {
	f.updates = append(f.updates, payoutUpdate{payoutID, status, failureReason})
	return nil
}

type fakeProfileRepo struct {
	vendorsByEmail map[string]string
}

func (f *fakeProfileRepo) GetVendorIDByEmailTx(ctx context.Context, q domain.Querier, email string) (string, error) {
	if id, ok := f.vendorsByEmail[email]; ok {
		return id, nil
	}
	return "", domain.ErrProfileNotFound
}

type fakeAuditRepo struct {
	rows []*domain.PaymentTransaction
}

func (f *fakeAuditRepo) CreatePaymentTransactionTx(ctx context.Context, q domain.Querier, ptx *domain.PaymentTransaction) error {
	f.rows = append(f.rows, ptx)
	return nil
}

type loggedEvent struct {
	reference string
	status    string
}

type fakeEventLogRepo struct {
	entries []loggedEvent
}

func (f *fakeEventLogRepo) Append(ctx context.Context, q domain.Querier, reference, status string, payload []byte) error {
	f.entries = append(f.entries, loggedEvent{reference, status})
	return nil
}

type fakeOutboxRepo struct {
	messages []*domain.OutboxMessage
}

func (f *fakeOutboxRepo) CreateMessageTx(ctx context.Context, q domain.Querier, msg *domain.OutboxMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeOutboxRepo) GetPendingMessages(ctx context.Context, q domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateMessageStatusTx(ctx context.Context, q domain.Querier, id string, status domain.OutboxMessageStatus) error {
	return nil
}

type testEnv struct {
	svc      WebhookService
	escrow   *fakeEscrowService
	orders   *fakeOrderRepo
	vendors  *fakeVendorRepo
	payouts  *fakePayoutRepo
	profiles *fakeProfileRepo
	audit    *fakeAuditRepo
	eventLog *fakeEventLogRepo
	outbox   *fakeOutboxRepo
	mock     sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		escrow:   &fakeEscrowService{},
		orders:   &fakeOrderRepo{},
		vendors:  &fakeVendorRepo{},
		payouts:  &fakePayoutRepo{},
		profiles: &fakeProfileRepo{vendorsByEmail: map[string]string{}},
		audit:    &fakeAuditRepo{},
		eventLog: &fakeEventLogRepo{},
		outbox:   &fakeOutboxRepo{},
		mock:     mock,
	}
	env.svc = NewWebhookService(
		db, env.escrow, env.orders, env.vendors, env.payouts,
		env.profiles, env.audit, env.eventLog, env.outbox, zap.NewNop(),
	)
	return env
}

func TestProcessEvent_ChargeAbandonedIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.orders.order = &domain.Order{ID: "ord-1", PaymentStatus: "pending"}

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventChargeAbandoned,
		Reference: "NIMEX-ord-1-1700000000",
	})
	require.NoError(t, err)

	// Audit trail only: no order mutation, no escrow, exactly one log row.
	assert.Empty(t, env.orders.markedPaid)
	assert.Empty(t, env.escrow.created)
	require.Len(t, env.eventLog.entries, 1)
	assert.Equal(t, "abandoned", env.eventLog.entries[0].status)
}

func TestProcessEvent_UnknownTypeAcknowledged(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      "invoice.create",
		Reference: "ref-x",
	})
	require.NoError(t, err)
	require.Len(t, env.eventLog.entries, 1)
	assert.Equal(t, "unhandled", env.eventLog.entries[0].status)
}

func TestProcessEvent_OrderChargeSuccessCreatesEscrow(t *testing.T) {
	env := newTestEnv(t)
	env.orders.order = &domain.Order{ID: "ord-1", BuyerID: "b1", VendorID: "v1", TotalAmount: 400}

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventChargeSuccess,
		Reference: "NIMEX-ord-1-1700000000",
		Amount:    10000,
		OrderID:   "ord-1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ord-1"}, env.orders.markedPaid)
	require.Len(t, env.escrow.created, 1)
	// The escrow holds the provider-confirmed amount.
	assert.Equal(t, 10000.0, env.escrow.created[0].TotalAmount)
	require.Len(t, env.eventLog.entries, 1)
	assert.Equal(t, "processed", env.eventLog.entries[0].status)
}

func TestProcessEvent_OrderChargeSuccessIdempotentOnExistingEscrow(t *testing.T) {
	env := newTestEnv(t)
	env.orders.order = &domain.Order{ID: "ord-1", EscrowID: "esc-1", TotalAmount: 400}

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventChargeSuccess,
		Reference: "NIMEX-ord-1-1700000000",
		Amount:    10000,
		OrderID:   "ord-1",
	})
	require.NoError(t, err)

	// Re-delivery re-marks the order paid but never creates a second escrow.
	assert.Equal(t, []string{"ord-1"}, env.orders.markedPaid)
	assert.Empty(t, env.escrow.created)
}

func TestProcessEvent_SubscriptionChargeSuccess(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventChargeSuccess,
		Reference: "NIMEX-SUB-v123-annual-1700000000",
		Amount:    5000,
	})
	require.NoError(t, err)

	require.Len(t, env.vendors.subUpdates, 1)
	update := env.vendors.subUpdates[0]
	assert.Equal(t, "v123", update.vendorID)
	assert.Equal(t, "annual", update.plan)
	assert.Equal(t, domain.SubscriptionStatusActive, update.status)
	assert.Equal(t, update.start.AddDate(0, 12, 0), update.end)

	require.Len(t, env.audit.rows, 1)
	assert.Equal(t, domain.PaymentTransactionTypeSubscription, env.audit.rows[0].Type)
	assert.Equal(t, 5000.0, env.audit.rows[0].Amount)
}

func TestProcessEvent_SubscriptionUnknownPlanDefaultsToOneMonth(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventChargeSuccess,
		Reference: "NIMEX-SUB-v123-lifetime-1700000000",
		Amount:    5000,
	})
	require.NoError(t, err)

	require.Len(t, env.vendors.subUpdates, 1)
	update := env.vendors.subUpdates[0]
	assert.Equal(t, update.start.AddDate(0, 1, 0), update.end)
}

func TestProcessEvent_SubscriptionCreate(t *testing.T) {
	env := newTestEnv(t)
	env.profiles.vendorsByEmail["vendor@example.com"] = "v123"

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventSubscriptionCreate,
		Reference: "SUB_code",
		Email:     "vendor@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, env.vendors.statusUpdates["v123"])
	// Activation never grants a paid period; only a successful charge does.
	assert.Empty(t, env.vendors.subUpdates)
}

func TestProcessEvent_SubscriptionNotRenew(t *testing.T) {
	env := newTestEnv(t)
	env.profiles.vendorsByEmail["vendor@example.com"] = "v123"

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventSubscriptionNotRenew,
		Reference: "SUB_code",
		Email:     "vendor@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusExpired, env.vendors.statusUpdates["v123"])
}

func TestProcessEvent_SubscriptionNotRenewUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventSubscriptionNotRenew,
		Reference: "SUB_code",
		Email:     "nobody@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, env.vendors.statusUpdates)
}

func TestProcessEvent_TransferFailedNoMatchingPayout(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventTransferFailed,
		Reference: "TRF_unrelated",
		Reason:    "Insufficient balance",
	})
	require.NoError(t, err)
	assert.Empty(t, env.payouts.updates)
	require.Len(t, env.eventLog.entries, 1)
	assert.Equal(t, "processed", env.eventLog.entries[0].status)
}

func TestProcessEvent_TransferSuccessReconcilesPayout(t *testing.T) {
	env := newTestEnv(t)
	env.payouts.payout = &domain.Payout{ID: "po-1", VendorID: "v1", TransferReference: "TRF_1"}

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventTransferSuccess,
		Reference: "TRF_1",
	})
	require.NoError(t, err)

	require.Len(t, env.payouts.updates, 1)
	assert.Equal(t, domain.PayoutStatusCompleted, env.payouts.updates[0].status)
	require.Len(t, env.outbox.messages, 1)
	assert.Equal(t, domain.OutboxTypePayoutReconciled, env.outbox.messages[0].MessageType)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestProcessEvent_TransferFailedRecordsReason(t *testing.T) {
	env := newTestEnv(t)
	env.payouts.payout = &domain.Payout{ID: "po-1", VendorID: "v1", TransferReference: "TRF_1"}

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventTransferFailed,
		Reference: "TRF_1",
		Reason:    "Insufficient balance",
	})
	require.NoError(t, err)

	require.Len(t, env.payouts.updates, 1)
	assert.Equal(t, domain.PayoutStatusFailed, env.payouts.updates[0].status)
	assert.Equal(t, "Insufficient balance", env.payouts.updates[0].failureReason)
}

func TestProcessEvent_UnparseableReferenceLogsOnly(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ProcessEvent(context.Background(), &domain.PaymentEvent{
		Type:      domain.EventChargeSuccess,
		Reference: "garbage",
	})
	require.NoError(t, err)
	assert.Empty(t, env.orders.markedPaid)
	assert.Empty(t, env.escrow.created)
	require.Len(t, env.eventLog.entries, 1)
}
