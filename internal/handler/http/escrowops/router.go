package escrowops_http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nimex/internal/app/escrow"
)

func RegisterRoutes(r chi.Router, s escrow.EscrowService, l *zap.Logger) {
	handler := NewEscrowOpsHandler(s, l.With(zap.String("component", "EscrowOpsHTTPHandler")))

	r.Route("/escrow", func(r chi.Router) {
		r.Post("/release", handler.ReleaseEscrowHandler)
		r.Post("/refund", handler.RefundEscrowHandler)
	})
}
