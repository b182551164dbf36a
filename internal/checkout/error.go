package checkout

import (
	"context"
	"errors"

	"paylink-checkout/internal/config"
	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/signature"
)

var (
	ErrBusy           = errors.New("payment is already being processed")
	ErrCancelDisabled = errors.New("order can no longer be cancelled")
	ErrInvalidState   = errors.New("action not allowed in current checkout state")
	ErrInvalidOrder   = errors.New("invalid order details")
	ErrNoOrder        = errors.New("no order found")
	ErrProcessFailed  = errors.New("failed to process order")
	ErrClosed         = errors.New("checkout session closed")
)

// User-facing messages.
const (
	msgNoOrder       = "No order found"
	msgProcessFailed = "Failed to process order"
	msgExpired       = "Order expired"
	msgNotConfigured = "Payment is not configured, please contact the merchant"
	msgNetwork       = "Network problem, please try again"
	msgGateway       = "Payment gateway error, please try again"
	msgChooseMethod  = "Please choose an available payment method"
	msgInvalidOrder  = "Order details are invalid"
	msgTimeout       = "Request timed out, please try again"
	msgUnknown       = "Something went wrong"
)

// Classify turns any checkout failure into the message shown to the payer
// and whether re-invoking the same action can succeed.
func Classify(err error) (string, bool) {
	var ge *payment.GatewayError

	switch {
	case err == nil:
		return "", false
	case errors.Is(err, ErrBusy):
		return ErrBusy.Error(), false
	case errors.Is(err, ErrCancelDisabled):
		return ErrCancelDisabled.Error(), false
	case errors.Is(err, ErrProcessFailed):
		return msgProcessFailed, false
	case errors.Is(err, ErrNoOrder),
		errors.Is(err, envelope.ErrFormat),
		errors.Is(err, envelope.ErrIntegrity),
		errors.Is(err, envelope.ErrDecrypt):
		return msgNoOrder, false
	case errors.Is(err, envelope.ErrExpired):
		return msgExpired, false
	case errors.Is(err, signature.ErrMissingSecret),
		errors.Is(err, envelope.ErrMissingKey),
		errors.Is(err, config.ErrMissingConfig):
		return msgNotConfigured, false
	case errors.Is(err, ErrInvalidOrder):
		return msgInvalidOrder, false
	case errors.Is(err, payment.ErrNoMethodSelected),
		errors.Is(err, payment.ErrMethodNotFound),
		errors.Is(err, payment.ErrMethodInactive),
		errors.Is(err, payment.ErrUnsupportedCategory):
		return msgChooseMethod, true
	case errors.Is(err, payment.ErrTransport):
		return msgNetwork, true
	case errors.As(err, &ge):
		if ge.Message != "" {
			return ge.Message, true
		}
		return msgGateway, true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return msgTimeout, true
	default:
		return msgUnknown, false
	}
}
