package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Settlement observation sources.
const (
	SourcePoll   = "poll"
	SourcePush   = "push"
	SourceCancel = "cancel"
)

// SettlementEvent is one terminal outcome observed by a checkout session.
type SettlementEvent struct {
	ID         int64
	PaymentID  string
	OrderID    string
	Channel    Channel
	Status     SettlementStatus
	Source     string
	Payload    json.RawMessage
	ObservedAt time.Time
}

type Repository interface {
	SaveSettlementEvent(ctx context.Context, e *SettlementEvent) (id int64, isDuplicate bool, err error)
	ListSettlementEvents(ctx context.Context, paymentID string) ([]SettlementEvent, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveSettlementEvent(ctx context.Context, e *SettlementEvent) (int64, bool, error) {
	const q = `
	INSERT INTO settlement_events (
		payment_id,
		order_id,
		channel,
		status,
		source,
		payload,
		observed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (payment_id, status)
	DO NOTHING
	RETURNING id;
	`

	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		e.PaymentID,
		e.OrderID,
		string(e.Channel),
		string(e.Status),
		e.Source,
		[]byte(payload),
		e.ObservedAt,
	).Scan(&id)

	if err != nil {
		// Same outcome already journaled for this payment
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	e.ID = id
	return id, false, nil
}

func (r *repository) ListSettlementEvents(ctx context.Context, paymentID string) ([]SettlementEvent, error) {
	const q = `
	SELECT id, payment_id, order_id, channel, status, source, payload, observed_at
	FROM settlement_events
	WHERE payment_id = $1
	ORDER BY observed_at ASC, id ASC;
	`

	rows, err := r.db.QueryContext(ctx, q, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SettlementEvent
	for rows.Next() {
		var (
			e       SettlementEvent
			channel string
			status  string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.OrderID, &channel, &status, &e.Source, &payload, &e.ObservedAt); err != nil {
			return nil, err
		}
		e.Channel = Channel(channel)
		e.Status = SettlementStatus(status)
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}
