package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type EventLister interface {
	ListSettlementEvents(ctx context.Context, paymentID string) ([]payment.SettlementEvent, error)
}

// EventsHandler exposes the settlement journal to reconciliation jobs.
type EventsHandler struct {
	repo EventLister
}

func NewEventsHandler(repo EventLister) *EventsHandler {
	return &EventsHandler{repo: repo}
}

type settlementEventResponse struct {
	ID         int64           `json:"id"`
	OrderID    string          `json:"orderId"`
	Channel    string          `json:"channel"`
	Status     string          `json:"status"`
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ObservedAt time.Time       `json:"observedAt"`
}

type settlementEventsResponse struct {
	PaymentID string                    `json:"paymentId"`
	Events    []settlementEventResponse `json:"events"`
}

// ListEvents serves GET /internal/settlements/{paymentId}.
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentId"))
	if paymentID == "" {
		utils.WriteJSONError(w, "missing payment id", http.StatusBadRequest)
		return
	}

	log := logger.FromCtx(r.Context()).With(zap.String("payment_id", paymentID))

	events, err := h.repo.ListSettlementEvents(r.Context(), paymentID)
	if err != nil {
		log.Error("Failed to list settlement events", zap.Error(err))
		utils.WriteJSONError(w, "failed to load settlement events", http.StatusInternalServerError)
		return
	}

	resp := settlementEventsResponse{
		PaymentID: paymentID,
		Events:    make([]settlementEventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, settlementEventResponse{
			ID:         e.ID,
			OrderID:    e.OrderID,
			Channel:    string(e.Channel),
			Status:     string(e.Status),
			Source:     e.Source,
			Payload:    e.Payload,
			ObservedAt: e.ObservedAt,
		})
	}

	log.Debug("Listed settlement events", zap.Int("count", len(resp.Events)))
	utils.WriteJSON(w, http.StatusOK, resp)
}
