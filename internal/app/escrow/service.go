package escrow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nimex/internal/domain"
	"nimex/internal/repository/escrow_repo"
	"nimex/internal/repository/order_repo"
	"nimex/internal/repository/outbox_repo"
	"nimex/internal/repository/vendor_repo"
	"nimex/internal/repository/wallet_repo"
	"nimex/internal/util"

	"go.uber.org/zap"
)

// EscrowService owns the held -> released | refunded state machine. Every
// state transition runs inside a single database transaction together with
// the wallet and order mutations it implies.
type EscrowService interface {
	CreateForOrder(ctx context.Context, order *domain.Order) (*domain.EscrowTransaction, error)
	Release(ctx context.Context, orderID, releaseType, notes, performedBy string) (*domain.EscrowTransaction, error)
	Refund(ctx context.Context, orderID, reason, performedBy string) (*domain.EscrowTransaction, error)
}

type escrowService struct {
	db         *sql.DB
	escrowRepo escrow_repo.EscrowRepository
	orderRepo  order_repo.OrderRepository
	vendorRepo vendor_repo.VendorRepository
	walletRepo wallet_repo.WalletRepository
	outboxRepo outbox_repo.OutboxRepository
	logger     *zap.Logger
}

func NewEscrowService(
	db *sql.DB,
	escrowRepo escrow_repo.EscrowRepository,
	orderRepo order_repo.OrderRepository,
	vendorRepo vendor_repo.VendorRepository,
	walletRepo wallet_repo.WalletRepository,
	outboxRepo outbox_repo.OutboxRepository,
	logger *zap.Logger,
) EscrowService {
	return &escrowService{
		db:         db,
		escrowRepo: escrowRepo,
		orderRepo:  orderRepo,
		vendorRepo: vendorRepo,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateForOrder records a new held escrow for a freshly paid order. The
// split is computed once here and never recomputed.
func (s *escrowService) CreateForOrder(ctx context.Context, order *domain.Order) (*domain.EscrowTransaction, error) {
	platformFee, vendorAmount := domain.SplitAmount(order.TotalAmount)

	escrow := &domain.EscrowTransaction{
		ID:           util.GenerateUUID(),
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		VendorID:     order.VendorID,
		TotalAmount:  order.TotalAmount,
		PlatformFee:  platformFee,
		VendorAmount: vendorAmount,
		Status:       domain.EscrowStatusHeld,
		CreatedAt:    time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction for escrow creation", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic during escrow creation, rolling back", zap.String("order_id", order.ID), zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	if err := s.escrowRepo.CreateTx(ctx, tx, escrow); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create escrow for order %s: %w", order.ID, err)
	}
	if err := s.orderRepo.SetEscrowTx(ctx, tx, order.ID, escrow.ID, domain.EscrowStatusHeld); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to link escrow to order %s: %w", order.ID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit escrow creation", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Escrow created",
		zap.String("escrow_id", escrow.ID),
		zap.String("order_id", order.ID),
		zap.Float64("total_amount", escrow.TotalAmount),
		zap.Float64("platform_fee", escrow.PlatformFee),
		zap.Float64("vendor_amount", escrow.VendorAmount))
	return escrow, nil
}

func (s *escrowService) Release(ctx context.Context, orderID, releaseType, notes, performedBy string) (*domain.EscrowTransaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction for escrow release", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic during escrow release, rolling back", zap.String("order_id", orderID), zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	escrow, err := s.releaseTx(ctx, tx, orderID, releaseType, notes)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back escrow release transaction", zap.String("order_id", orderID), zap.Error(rbErr))
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit escrow release", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Escrow released",
		zap.String("escrow_id", escrow.ID),
		zap.String("order_id", orderID),
		zap.String("vendor_id", escrow.VendorID),
		zap.Float64("vendor_amount", escrow.VendorAmount),
		zap.String("release_type", releaseType),
		zap.String("performed_by", performedBy))
	return escrow, nil
}

func (s *escrowService) releaseTx(ctx context.Context, tx *sql.Tx, orderID, releaseType, notes string) (*domain.EscrowTransaction, error) {
	escrow, err := s.escrowRepo.GetByOrderIDTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != domain.EscrowStatusHeld {
		return nil, &domain.EscrowStateError{Status: escrow.Status, Action: "release"}
	}

	vendor, err := s.vendorRepo.GetByIDTx(ctx, tx, escrow.VendorID)
	if err != nil {
		return nil, err
	}

	// balance_after is derived from the locked pre-read so concurrent
	// releases cannot produce a lost update.
	newBalance := vendor.WalletBalance + escrow.VendorAmount
	if err := s.vendorRepo.CreditWalletTx(ctx, tx, vendor.ID, newBalance); err != nil {
		return nil, err
	}

	now := time.Now()
	walletTx := &domain.WalletTransaction{
		ID:           util.GenerateUUID(),
		VendorID:     vendor.ID,
		Type:         domain.WalletTransactionTypeSale,
		Amount:       escrow.VendorAmount,
		BalanceAfter: newBalance,
		Reference:    escrow.OrderID,
		Description:  fmt.Sprintf("Escrow release for order %s", escrow.OrderID),
		Status:       "completed",
		CreatedAt:    now,
	}
	if err := s.walletRepo.AppendTransactionTx(ctx, tx, walletTx); err != nil {
		return nil, err
	}

	if err := s.escrowRepo.MarkReleasedTx(ctx, tx, escrow.ID, notes, releaseType, now); err != nil {
		return nil, err
	}
	if err := s.orderRepo.MarkEscrowReleasedTx(ctx, tx, orderID, now); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(domain.EscrowReleasedEvent{
		EscrowID:     escrow.ID,
		OrderID:      escrow.OrderID,
		VendorID:     escrow.VendorID,
		VendorAmount: escrow.VendorAmount,
		PlatformFee:  escrow.PlatformFee,
		ReleaseType:  releaseType,
		Timestamp:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal escrow released event: %w", err)
	}
	outboxMsg := &domain.OutboxMessage{
		ID:          util.GenerateUUID(),
		AggregateID: escrow.ID,
		MessageType: domain.OutboxTypeEscrowReleased,
		Payload:     payload,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   now,
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, tx, outboxMsg); err != nil {
		return nil, fmt.Errorf("failed to create outbox message for escrow %s: %w", escrow.ID, err)
	}

	escrow.Status = domain.EscrowStatusReleased
	escrow.ReleaseReason = notes
	escrow.ReleaseType = releaseType
	escrow.ReleasedAt = &now
	return escrow, nil
}

func (s *escrowService) Refund(ctx context.Context, orderID, reason, performedBy string) (*domain.EscrowTransaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction for escrow refund", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic during escrow refund, rolling back", zap.String("order_id", orderID), zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	escrow, err := s.refundTx(ctx, tx, orderID, reason, performedBy)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back escrow refund transaction", zap.String("order_id", orderID), zap.Error(rbErr))
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit escrow refund", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Escrow refunded",
		zap.String("escrow_id", escrow.ID),
		zap.String("order_id", orderID),
		zap.String("refunded_by", performedBy),
		zap.String("reason", reason))
	return escrow, nil
}

func (s *escrowService) refundTx(ctx context.Context, tx *sql.Tx, orderID, reason, performedBy string) (*domain.EscrowTransaction, error) {
	escrow, err := s.escrowRepo.GetByOrderIDTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != domain.EscrowStatusHeld {
		return nil, &domain.EscrowStateError{Status: escrow.Status, Action: "refund"}
	}

	// No wallet mutation on refund: the funds never left escrow.
	now := time.Now()
	if err := s.escrowRepo.MarkRefundedTx(ctx, tx, escrow.ID, performedBy, now); err != nil {
		return nil, err
	}
	if err := s.orderRepo.MarkRefundedTx(ctx, tx, orderID, now); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(domain.EscrowRefundedEvent{
		EscrowID:   escrow.ID,
		OrderID:    escrow.OrderID,
		BuyerID:    escrow.BuyerID,
		Amount:     escrow.TotalAmount,
		Reason:     reason,
		RefundedBy: performedBy,
		Timestamp:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal escrow refunded event: %w", err)
	}
	outboxMsg := &domain.OutboxMessage{
		ID:          util.GenerateUUID(),
		AggregateID: escrow.ID,
		MessageType: domain.OutboxTypeEscrowRefunded,
		Payload:     payload,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   now,
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, tx, outboxMsg); err != nil {
		return nil, fmt.Errorf("failed to create outbox message for escrow %s: %w", escrow.ID, err)
	}

	escrow.Status = domain.EscrowStatusRefunded
	escrow.RefundedBy = performedBy
	escrow.ReleasedAt = &now
	return escrow, nil
}
