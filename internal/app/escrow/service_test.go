package escrow

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nimex/internal/domain"
	"nimex/internal/repository/escrow_repo"
	"nimex/internal/repository/order_repo"
	"nimex/internal/repository/outbox_repo"
	"nimex/internal/repository/vendor_repo"
	"nimex/internal/repository/wallet_repo"
)

func newTestService(t *testing.T) (EscrowService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewEscrowService(
		db,
		escrow_repo.NewEscrowRepository(db),
		order_repo.NewOrderRepository(db),
		vendor_repo.NewVendorRepository(db),
		wallet_repo.NewWalletRepository(db),
		outbox_repo.NewOutboxRepository(db),
		zap.NewNop(),
	)
	return svc, mock, db
}

func escrowRows(status domain.EscrowStatus, totalAmount, platformFee, vendorAmount float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "order_id", "buyer_id", "vendor_id", "total_amount", "platform_fee", "vendor_amount",
		"status", "release_reason", "release_type", "refunded_by", "created_at", "released_at",
	}).AddRow("esc-1", "ord-1", "buyer-1", "ven-1", totalAmount, platformFee, vendorAmount,
		string(status), "", "", "", time.Now(), nil)
}

func vendorRows(balance float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "wallet_balance", "total_sales", "subscription_plan", "subscription_status",
		"subscription_start_date", "subscription_end_date", "updated_at",
	}).AddRow("ven-1", balance, 3, "", "", nil, nil, time.Now())
}

func TestRelease_Success(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusHeld, 10000, 500, 9500))
	mock.ExpectQuery(`FROM vendors`).
		WithArgs("ven-1").
		WillReturnRows(vendorRows(0))
	mock.ExpectExec(`UPDATE vendors`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE escrow_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	escrow, err := svc.Release(context.Background(), "ord-1", "manual", "buyer confirmed delivery", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, escrow.Status)
	assert.Equal(t, 9500.0, escrow.VendorAmount)
	assert.NotNil(t, escrow.ReleasedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_AlreadyReleased(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusReleased, 10000, 500, 9500))
	mock.ExpectRollback()

	_, err := svc.Release(context.Background(), "ord-1", "manual", "", "admin-1")
	require.Error(t, err)

	var stateErr *domain.EscrowStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "Escrow status is 'released', cannot release", stateErr.Error())

	// Nothing else may run: in particular no second wallet credit.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_EscrowNotFound(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Release(context.Background(), "ord-missing", "manual", "", "admin-1")
	assert.ErrorIs(t, err, domain.ErrEscrowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_VendorNotFound(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusHeld, 10000, 500, 9500))
	mock.ExpectQuery(`FROM vendors`).
		WithArgs("ven-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Release(context.Background(), "ord-1", "manual", "", "admin-1")
	assert.ErrorIs(t, err, domain.ErrVendorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefund_Success(t *testing.T) {
	svc, mock, _ := newTestService(t)

	// Refund never touches vendors or wallet_transactions: the funds never
	// left escrow.
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusHeld, 10000, 500, 9500))
	mock.ExpectExec(`UPDATE escrow_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	escrow, err := svc.Refund(context.Background(), "ord-1", "item not delivered", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusRefunded, escrow.Status)
	assert.Equal(t, "admin-1", escrow.RefundedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefund_AlreadyRefunded(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusRefunded, 10000, 500, 9500))
	mock.ExpectRollback()

	_, err := svc.Refund(context.Background(), "ord-1", "duplicate", "admin-1")
	var stateErr *domain.EscrowStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "Escrow status is 'refunded', cannot refund", stateErr.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefund_ReleasedEscrowFails(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusReleased, 10000, 500, 9500))
	mock.ExpectRollback()

	_, err := svc.Refund(context.Background(), "ord-1", "too late", "admin-1")
	var stateErr *domain.EscrowStateError
	require.ErrorAs(t, err, &stateErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateForOrder(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO escrow_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order := &domain.Order{ID: "ord-1", BuyerID: "buyer-1", VendorID: "ven-1", TotalAmount: 10000}
	escrow, err := svc.CreateForOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusHeld, escrow.Status)
	assert.Equal(t, 500.0, escrow.PlatformFee)
	assert.Equal(t, 9500.0, escrow.VendorAmount)
	assert.Equal(t, escrow.TotalAmount, escrow.PlatformFee+escrow.VendorAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_WalletBalanceAfter(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_transactions`).
		WithArgs("ord-1").
		WillReturnRows(escrowRows(domain.EscrowStatusHeld, 200, 10, 190))
	mock.ExpectQuery(`FROM vendors`).
		WithArgs("ven-1").
		WillReturnRows(vendorRows(1500.50))
	// The new balance written to vendors and the ledger's balance_after must
	// both come from the locked pre-read.
	mock.ExpectExec(`UPDATE vendors`).
		WithArgs(1690.50, sqlmock.AnyArg(), "ven-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WithArgs(sqlmock.AnyArg(), "ven-1", domain.WalletTransactionTypeSale, 190.0, 1690.50,
			"ord-1", sqlmock.AnyArg(), "completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE escrow_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.Release(context.Background(), "ord-1", "auto", "delivery window elapsed", "system")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
