package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/signature"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantRetry bool
	}{
		{"Nil", nil, "", false},
		{"Busy", ErrBusy, ErrBusy.Error(), false},
		{"CancelDisabled", ErrCancelDisabled, ErrCancelDisabled.Error(), false},
		{"Integrity", fmt.Errorf("%w: %w", ErrNoOrder, envelope.ErrIntegrity), msgNoOrder, false},
		{"BareFormat", envelope.ErrFormat, msgNoOrder, false},
		{"ProcessFailedWinsOverDecode", fmt.Errorf("%w: %w", ErrProcessFailed, envelope.ErrDecrypt), msgProcessFailed, false},
		{"Expired", envelope.ErrExpired, msgExpired, false},
		{"MissingSecret", signature.ErrMissingSecret, msgNotConfigured, false},
		{"MissingKey", envelope.ErrMissingKey, msgNotConfigured, false},
		{"InvalidOrder", fmt.Errorf("%w: items", ErrInvalidOrder), msgInvalidOrder, false},
		{"InactiveMethod", payment.ErrMethodInactive, msgChooseMethod, true},
		{"Transport", &payment.TransportError{Op: "create order", Err: errors.New("refused")}, msgNetwork, true},
		{"GatewayWithMessage", &payment.GatewayError{Op: "create order", Message: "amount too low"}, "amount too low", true},
		{"GatewayBare", &payment.GatewayError{Op: "create order", StatusCode: 502}, msgGateway, true},
		{"Deadline", context.DeadlineExceeded, msgTimeout, true},
		{"Unknown", errors.New("boom"), msgUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, retry := Classify(tt.err)
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantRetry, retry)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting_settlement", StateAwaitingSettlement.String())
	assert.Equal(t, "paid", StatePaid.String())
	assert.Equal(t, "state(42)", State(42).String())
}
