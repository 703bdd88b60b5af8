package webhook_http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nimex/internal/app/webhook"
)

func RegisterRoutes(r chi.Router, service webhook.WebhookService, verifier *webhook.SignatureVerifier, processTimeout time.Duration, l *zap.Logger) {
	handler := NewWebhookHandler(service, verifier, processTimeout, l.With(zap.String("component", "WebhookHTTPHandler")))

	r.Post("/webhooks/paystack", handler.HandleWebhook)
}
