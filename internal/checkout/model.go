package checkout

import (
	"context"
	"fmt"

	"paylink-checkout/internal/notifier"
	"paylink-checkout/internal/payment"
)

type State int

const (
	StateSelectingMethod State = iota
	StateCreating
	StateAwaitingSettlement
	StateCancelling
	StatePaid
	StateCancelled
	StateExpired
	StateError
)

func (s State) String() string {
	switch s {
	case StateSelectingMethod:
		return "selecting_method"
	case StateCreating:
		return "creating"
	case StateAwaitingSettlement:
		return "awaiting_settlement"
	case StateCancelling:
		return "cancelling"
	case StatePaid:
		return "paid"
	case StateCancelled:
		return "cancelled"
	case StateExpired:
		return "expired"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Codec seals and opens the session envelope carried in ?q=.
type Codec interface {
	Encode(v any) (string, error)
	Decode(token string, v any) error
}

// PushHandle is one push subscription, see notifier.Handle.
type PushHandle interface {
	Events() <-chan notifier.Event
	Reopened() <-chan struct{}
	State() notifier.State
	Close()
}

// Dialer opens push subscriptions and carries the reconnect-suppressed
// flag. Connect must not block on the network.
type Dialer interface {
	Connect(ctx context.Context, url string) (PushHandle, error)
	SuppressReconnect()
	AllowReconnect()
}

// Navigator moves the payer to another checkout page.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

type Presenter interface {
	Toast(message string)
	Countdown(remaining int64)
	ExpiredBanner()
	NotFound(message string)
}

// FrameNotifier posts the outcome to an embedding parent window.
type FrameNotifier interface {
	PostParent(msg ParentMessage)
}

type Journal interface {
	SaveSettlementEvent(ctx context.Context, e *payment.SettlementEvent) (int64, bool, error)
}

type ParentMessage struct {
	Success bool                    `json:"success"`
	Data    *payment.PaymentDetails `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// SelectionView backs the method selection page.
type SelectionView struct {
	Order    payment.OrderDetails
	Groups   []payment.MethodGroup
	Selected *payment.PaymentMethod
}

// ProcessingView backs the page shown while waiting for settlement.
type ProcessingView struct {
	State        State
	Method       payment.PaymentMethod
	PaymentData  payment.PaymentData
	Amount       string
	Remaining    int64
	CanCancel    bool
	Instructions []string
}

// Receipt backs the success page.
type Receipt struct {
	OrderID      string
	PaymentID    string
	Method       string
	Amount       string
	PaymentCode  string
	Instructions []string
}

// notifierDialer adapts *notifier.Notifier to Dialer.
type notifierDialer struct {
	n *notifier.Notifier
}

func NewPushDialer(n *notifier.Notifier) Dialer {
	return &notifierDialer{n: n}
}

func (d *notifierDialer) Connect(ctx context.Context, url string) (PushHandle, error) {
	h, err := d.n.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (d *notifierDialer) SuppressReconnect() { d.n.SuppressReconnect() }
func (d *notifierDialer) AllowReconnect()    { d.n.AllowReconnect() }
