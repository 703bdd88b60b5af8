package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nimex/internal/app/escrow"
	"nimex/internal/domain"
	"nimex/internal/repository/audit_repo"
	"nimex/internal/repository/eventlog_repo"
	"nimex/internal/repository/order_repo"
	"nimex/internal/repository/outbox_repo"
	"nimex/internal/repository/payout_repo"
	"nimex/internal/repository/profile_repo"
	"nimex/internal/repository/vendor_repo"
	"nimex/internal/util"

	"go.uber.org/zap"
)

const paymentMethod = "paystack"

// WebhookService routes one verified provider event to exactly one handler
// (or none). It never mutates escrow or wallet state itself; money movement
// is delegated to the escrow service.
type WebhookService interface {
	ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error
}

type webhookService struct {
	db            *sql.DB
	escrowService escrow.EscrowService
	orderRepo     order_repo.OrderRepository
	vendorRepo    vendor_repo.VendorRepository
	payoutRepo    payout_repo.PayoutRepository
	profileRepo   profile_repo.ProfileRepository
	auditRepo     audit_repo.AuditRepository
	eventLogRepo  eventlog_repo.EventLogRepository
	outboxRepo    outbox_repo.OutboxRepository
	logger        *zap.Logger
}

func NewWebhookService(
	db *sql.DB,
	escrowService escrow.EscrowService,
	orderRepo order_repo.OrderRepository,
	vendorRepo vendor_repo.VendorRepository,
	payoutRepo payout_repo.PayoutRepository,
	profileRepo profile_repo.ProfileRepository,
	auditRepo audit_repo.AuditRepository,
	eventLogRepo eventlog_repo.EventLogRepository,
	outboxRepo outbox_repo.OutboxRepository,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		db:            db,
		escrowService: escrowService,
		orderRepo:     orderRepo,
		vendorRepo:    vendorRepo,
		payoutRepo:    payoutRepo,
		profileRepo:   profileRepo,
		auditRepo:     auditRepo,
		eventLogRepo:  eventLogRepo,
		outboxRepo:    outboxRepo,
		logger:        logger,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error {
	var err error
	label := "processed"

	switch event.Type {
	case domain.EventChargeSuccess:
		err = s.handleChargeSuccess(ctx, event)
	case domain.EventChargeAbandoned:
		// Abandoned charges carry no state change by contract: the buyer
		// simply walked away. Audit trail only.
		label = "abandoned"
		s.logger.Info("Charge abandoned", zap.String("reference", event.Reference))
	case domain.EventTransferSuccess:
		err = s.handleTransferResult(ctx, event, domain.PayoutStatusCompleted)
	case domain.EventTransferFailed:
		err = s.handleTransferResult(ctx, event, domain.PayoutStatusFailed)
	case domain.EventSubscriptionCreate:
		err = s.handleSubscriptionCreate(ctx, event)
	case domain.EventSubscriptionNotRenew:
		err = s.handleSubscriptionNotRenew(ctx, event)
	default:
		// Unknown types are acknowledged so the provider does not retry.
		label = "unhandled"
		s.logger.Info("Unhandled event type", zap.String("event_type", event.Type), zap.String("reference", event.Reference))
	}

	if err != nil {
		label = "failed"
	}
	s.logEvent(ctx, event.Reference, label, event.RawPayload)
	return err
}

// logEvent is fire-and-forget: a broken audit trail must never affect the
// webhook response.
func (s *webhookService) logEvent(ctx context.Context, reference, status string, payload []byte) {
	if err := s.eventLogRepo.Append(ctx, s.db, reference, status, payload); err != nil {
		s.logger.Error("Failed to append payment event log entry",
			zap.String("reference", reference),
			zap.String("status", status),
			zap.Error(err))
	}
}

func (s *webhookService) handleChargeSuccess(ctx context.Context, event *domain.PaymentEvent) error {
	ref := ParseReference(event.Reference, event.OrderID)
	switch ref.Kind {
	case ReferenceSubscription:
		return s.handleSubscriptionPayment(ctx, event, ref)
	case ReferenceOrder:
		return s.handleOrderPayment(ctx, event, ref.OrderID)
	default:
		s.logger.Warn("Charge success with unparseable reference, logging only",
			zap.String("reference", event.Reference))
		return nil
	}
}

func (s *webhookService) handleOrderPayment(ctx context.Context, event *domain.PaymentEvent, orderID string) error {
	order, err := s.orderRepo.GetByIDTx(ctx, s.db, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s for charge success: %w", orderID, err)
	}

	// Re-delivery overwrites the same fields with the same values.
	if err := s.orderRepo.MarkPaidTx(ctx, s.db, orderID, event.Reference, paymentMethod, time.Now()); err != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", orderID, err)
	}
	s.logger.Info("Order marked paid",
		zap.String("order_id", orderID),
		zap.String("reference", event.Reference),
		zap.Float64("amount", event.Amount))

	if order.EscrowID != "" {
		s.logger.Info("Escrow already exists for order, skipping creation",
			zap.String("order_id", orderID),
			zap.String("escrow_id", order.EscrowID))
		return nil
	}

	// The escrow holds the provider-confirmed amount; the order total is the
	// fallback for events that omit it.
	total := event.Amount
	if total == 0 {
		total = order.TotalAmount
	}
	escrowOrder := *order
	escrowOrder.TotalAmount = total

	if _, err := s.escrowService.CreateForOrder(ctx, &escrowOrder); err != nil {
		return fmt.Errorf("failed to create escrow for order %s: %w", orderID, err)
	}
	return nil
}

func (s *webhookService) handleSubscriptionPayment(ctx context.Context, event *domain.PaymentEvent, ref ParsedReference) error {
	months, known := domain.PlanDurationMonths(ref.Plan)
	if !known {
		s.logger.Warn("Unknown subscription plan, defaulting to one month",
			zap.String("plan", ref.Plan),
			zap.String("vendor_id", ref.VendorID))
	}

	// The audit row is written first so a subscription charge is recorded
	// even when the vendor update below fails.
	now := time.Now()
	audit := &domain.PaymentTransaction{
		ID:        util.GenerateUUID(),
		VendorID:  ref.VendorID,
		Type:      domain.PaymentTransactionTypeSubscription,
		Amount:    event.Amount,
		Reference: event.Reference,
		Status:    "success",
		CreatedAt: now,
	}
	if err := s.auditRepo.CreatePaymentTransactionTx(ctx, s.db, audit); err != nil {
		s.logger.Error("Failed to record subscription payment transaction",
			zap.String("vendor_id", ref.VendorID),
			zap.Error(err))
	}

	endDate := now.AddDate(0, months, 0)
	if err := s.vendorRepo.UpdateSubscriptionTx(ctx, s.db, ref.VendorID, ref.Plan, domain.SubscriptionStatusActive, now, endDate); err != nil {
		return fmt.Errorf("failed to activate subscription for vendor %s: %w", ref.VendorID, err)
	}

	s.logger.Info("Vendor subscription activated",
		zap.String("vendor_id", ref.VendorID),
		zap.String("plan", ref.Plan),
		zap.Int("duration_months", months),
		zap.Time("end_date", endDate))
	return nil
}

func (s *webhookService) handleSubscriptionCreate(ctx context.Context, event *domain.PaymentEvent) error {
	vendorID, err := s.profileRepo.GetVendorIDByEmailTx(ctx, s.db, event.Email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			s.logger.Info("Subscription create for unknown vendor email, ignoring",
				zap.String("reference", event.Reference))
			return nil
		}
		return fmt.Errorf("failed to resolve vendor for subscription create: %w", err)
	}

	if err := s.vendorRepo.SetSubscriptionStatusTx(ctx, s.db, vendorID, domain.SubscriptionStatusActive); err != nil {
		return fmt.Errorf("failed to mark subscription active for vendor %s: %w", vendorID, err)
	}
	s.logger.Info("Vendor subscription marked active", zap.String("vendor_id", vendorID))
	return nil
}

func (s *webhookService) handleSubscriptionNotRenew(ctx context.Context, event *domain.PaymentEvent) error {
	vendorID, err := s.profileRepo.GetVendorIDByEmailTx(ctx, s.db, event.Email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			s.logger.Info("Subscription non-renewal for unknown vendor email, ignoring",
				zap.String("reference", event.Reference))
			return nil
		}
		return fmt.Errorf("failed to resolve vendor for subscription non-renewal: %w", err)
	}

	if err := s.vendorRepo.SetSubscriptionStatusTx(ctx, s.db, vendorID, domain.SubscriptionStatusExpired); err != nil {
		return fmt.Errorf("failed to mark subscription expired for vendor %s: %w", vendorID, err)
	}
	s.logger.Info("Vendor subscription marked expired", zap.String("vendor_id", vendorID))
	return nil
}

func (s *webhookService) handleTransferResult(ctx context.Context, event *domain.PaymentEvent, status domain.PayoutStatus) error {
	payout, err := s.payoutRepo.GetByTransferReferenceTx(ctx, s.db, event.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrPayoutNotFound) {
			// A transfer may be unrelated to any tracked vendor payout.
			s.logger.Info("Transfer result matches no tracked payout, ignoring",
				zap.String("transfer_reference", event.Reference))
			return nil
		}
		return fmt.Errorf("failed to look up payout for transfer %s: %w", event.Reference, err)
	}

	now := time.Now()
	var completedAt *time.Time
	failureReason := ""
	if status == domain.PayoutStatusCompleted {
		completedAt = &now
	} else {
		failureReason = event.Reason
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for payout reconciliation: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := s.payoutRepo.UpdateStatusTx(ctx, tx, payout.ID, status, failureReason, completedAt); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update payout %s status: %w", payout.ID, err)
	}

	payload, err := json.Marshal(domain.PayoutReconciledEvent{
		PayoutID:          payout.ID,
		VendorID:          payout.VendorID,
		TransferReference: payout.TransferReference,
		Status:            string(status),
		FailureReason:     failureReason,
		Timestamp:         now,
	})
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to marshal payout reconciled event: %w", err)
	}
	outboxMsg := &domain.OutboxMessage{
		ID:          util.GenerateUUID(),
		AggregateID: payout.ID,
		MessageType: domain.OutboxTypePayoutReconciled,
		Payload:     payload,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   now,
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, tx, outboxMsg); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create outbox message for payout %s: %w", payout.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payout reconciliation: %w", err)
	}

	s.logger.Info("Payout reconciled",
		zap.String("payout_id", payout.ID),
		zap.String("transfer_reference", payout.TransferReference),
		zap.String("status", string(status)))
	return nil
}
