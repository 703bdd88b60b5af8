package webhook_http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nimex/internal/app/webhook"
	"nimex/internal/domain"
)

// SignatureHeader carries the provider's HMAC-SHA512 hex digest of the raw
// request body.
const SignatureHeader = "x-paystack-signature"

type WebhookHandler struct {
	service        webhook.WebhookService
	verifier       *webhook.SignatureVerifier
	processTimeout time.Duration
	logger         *zap.Logger
}

func NewWebhookHandler(service webhook.WebhookService, verifier *webhook.SignatureVerifier, processTimeout time.Duration, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:        service,
		verifier:       verifier,
		processTimeout: processTimeout,
		logger:         logger,
	}
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference        string          `json:"reference"`
		Amount           int64           `json:"amount"`
		Metadata         json.RawMessage `json:"metadata"`
		SubscriptionCode string          `json:"subscription_code"`
		Reason           string          `json:"reason"`
		Customer         struct {
			Email        string `json:"email"`
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
	} `json:"data"`
}

type webhookMetadata struct {
	OrderID string `json:"order_id"`
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// The raw bytes must be captured before any parsing: the signature was
	// computed over exactly what the provider sent.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" || !h.verifier.Verify(body, signature) {
		// Rejected before any business logic; nothing is written anywhere,
		// including the event log.
		h.logger.Warn("Webhook signature verification failed", zap.Int("body_bytes", len(body)))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	// Once the signature is valid the provider only ever sees 200: retrying
	// a deterministically failing event would just repeat the failure.
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Failed to parse webhook payload", zap.Error(err))
		h.respond(w, webhookResponse{Received: true, Error: "invalid payload"})
		return
	}

	var meta webhookMetadata
	if len(payload.Data.Metadata) > 0 {
		// Metadata is free-form; a non-object value just means no order id.
		_ = json.Unmarshal(payload.Data.Metadata, &meta)
	}

	event := &domain.PaymentEvent{
		Type:       payload.Event,
		Reference:  payload.Data.Reference,
		Amount:     float64(payload.Data.Amount) / 100,
		OrderID:    meta.OrderID,
		CustomerID: payload.Data.Customer.CustomerCode,
		Email:      payload.Data.Customer.Email,
		Reason:     payload.Data.Reason,
		RawPayload: body,
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.processTimeout)
	defer cancel()

	if err := h.service.ProcessEvent(ctx, event); err != nil {
		h.logger.Error("Webhook event processing failed",
			zap.String("event_type", event.Type),
			zap.String("reference", event.Reference),
			zap.Error(err))
		h.respond(w, webhookResponse{Received: true, Error: err.Error()})
		return
	}

	h.respond(w, webhookResponse{Received: true})
}

func (h *WebhookHandler) respond(w http.ResponseWriter, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to write webhook response", zap.Error(err))
	}
}
