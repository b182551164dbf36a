package proxy

import (
	"errors"
	"net/http"
	"time"

	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/utils"

	"go.uber.org/zap"
)

// Decoder opens a session envelope.
type Decoder interface {
	Decode(token string, v any) error
}

// Handler serves GET /api/payment?q=, the server-side view of a checkout
// link. It is the only place order expiry is strictly enforced.
type Handler struct {
	codec Decoder
	now   func() time.Time
}

type Option func(*Handler)

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(codec Decoder, opts ...Option) *Handler {
	h := &Handler{
		codec: codec,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	// Step 1: envelope must be present
	q := r.URL.Query().Get("q")
	if q == "" {
		utils.WriteJSONError(w, "missing payment payload", http.StatusBadRequest)
		return
	}

	// Step 2: authenticate and open
	var details payment.PaymentDetails
	if err := h.codec.Decode(q, &details); err != nil {
		status, msg := decodeStatus(err)
		log.Warn("Rejected payment payload",
			zap.Int("status", status),
			zap.Error(err),
		)
		utils.WriteJSONError(w, msg, status)
		return
	}

	if err := details.Validate(); err != nil {
		log.Warn("Inconsistent payment payload", zap.Error(err))
		utils.WriteJSONError(w, "inconsistent payment payload", http.StatusBadRequest)
		return
	}

	// Step 3: strict expiry
	if _, err := envelope.CheckExpiry(details.Expiry(), h.now()); err != nil {
		if errors.Is(err, envelope.ErrExpired) {
			log.Info("Payment link expired", zap.String("expiry", details.Expiry()))
			utils.WriteJSONError(w, "order expired", http.StatusGone)
			return
		}
		log.Warn("Payment payload without valid expiry", zap.Error(err))
		utils.WriteJSONError(w, "invalid order expiry", http.StatusBadRequest)
		return
	}

	utils.WriteJSON(w, http.StatusOK, details)
}

func decodeStatus(err error) (int, string) {
	switch {
	case errors.Is(err, envelope.ErrFormat):
		return http.StatusBadRequest, "malformed payment payload"
	case errors.Is(err, envelope.ErrIntegrity):
		return http.StatusBadRequest, "payment payload failed verification"
	case errors.Is(err, envelope.ErrDecrypt):
		return http.StatusInternalServerError, "failed to decrypt payment payload"
	default:
		return http.StatusInternalServerError, "failed to read payment payload"
	}
}
