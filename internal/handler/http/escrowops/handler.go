package escrowops_http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nimex/internal/app/escrow"
	"nimex/internal/domain"
)

type EscrowOpsHandler struct {
	service escrow.EscrowService
	logger  *zap.Logger
}

func NewEscrowOpsHandler(s escrow.EscrowService, l *zap.Logger) *EscrowOpsHandler {
	return &EscrowOpsHandler{service: s, logger: l}
}

type ReleaseEscrowRequest struct {
	OrderID           string `json:"orderId"`
	ReleaseType       string `json:"releaseType"`
	Notes             string `json:"notes"`
	PerformedByUserID string `json:"performedByUserId"`
}

type RefundEscrowRequest struct {
	OrderID           string `json:"orderId"`
	Reason            string `json:"reason"`
	PerformedByUserID string `json:"performedByUserId"`
}

type EscrowOpsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *EscrowOpsHandler) ReleaseEscrowHandler(w http.ResponseWriter, r *http.Request) {
	var req ReleaseEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid request body for escrow release", zap.Error(err))
		h.respond(w, http.StatusBadRequest, EscrowOpsResponse{Success: false, Error: "Invalid request body"})
		return
	}
	if req.OrderID == "" {
		h.respond(w, http.StatusBadRequest, EscrowOpsResponse{Success: false, Error: "orderId is required"})
		return
	}

	_, err := h.service.Release(r.Context(), req.OrderID, req.ReleaseType, req.Notes, req.PerformedByUserID)
	if err != nil {
		h.respondDomainError(w, err, "release", req.OrderID)
		return
	}

	h.respond(w, http.StatusOK, EscrowOpsResponse{Success: true, Message: "Escrow released successfully"})
}

func (h *EscrowOpsHandler) RefundEscrowHandler(w http.ResponseWriter, r *http.Request) {
	var req RefundEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid request body for escrow refund", zap.Error(err))
		h.respond(w, http.StatusBadRequest, EscrowOpsResponse{Success: false, Error: "Invalid request body"})
		return
	}
	if req.OrderID == "" {
		h.respond(w, http.StatusBadRequest, EscrowOpsResponse{Success: false, Error: "orderId is required"})
		return
	}

	_, err := h.service.Refund(r.Context(), req.OrderID, req.Reason, req.PerformedByUserID)
	if err != nil {
		h.respondDomainError(w, err, "refund", req.OrderID)
		return
	}

	h.respond(w, http.StatusOK, EscrowOpsResponse{Success: true, Message: "Escrow refunded successfully"})
}

func (h *EscrowOpsHandler) respondDomainError(w http.ResponseWriter, err error, action, orderID string) {
	var stateErr *domain.EscrowStateError
	switch {
	case errors.As(err, &stateErr):
		h.logger.Warn("Escrow state precondition failed",
			zap.String("order_id", orderID),
			zap.String("action", action),
			zap.Error(err))
		h.respond(w, http.StatusConflict, EscrowOpsResponse{Success: false, Error: stateErr.Error()})
	case errors.Is(err, domain.ErrEscrowNotFound),
		errors.Is(err, domain.ErrVendorNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		h.logger.Warn("Escrow operation target not found",
			zap.String("order_id", orderID),
			zap.String("action", action),
			zap.Error(err))
		h.respond(w, http.StatusNotFound, EscrowOpsResponse{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Escrow operation failed",
			zap.String("order_id", orderID),
			zap.String("action", action),
			zap.Error(err))
		h.respond(w, http.StatusInternalServerError, EscrowOpsResponse{Success: false, Error: "Internal server error"})
	}
}

func (h *EscrowOpsHandler) respond(w http.ResponseWriter, status int, resp EscrowOpsResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to write escrow ops response", zap.Error(err))
	}
}
