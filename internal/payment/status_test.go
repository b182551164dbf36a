package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQRIS(t *testing.T) {
	tests := []struct {
		code string
		want SettlementStatus
	}{
		{"00", StatusPending},
		{"01", StatusPending},
		{"02", StatusPaid},
		{" 02 ", StatusPaid},
		{"03", StatusExpired},
		{"04", StatusCancelled},
		{"05", StatusError},
		{"99", StatusPending},
		{"", StatusPending},
	}

	for _, tt := range tests {
		t.Run("code "+tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQRIS(tt.code))
		})
	}
}

func TestNormalizeVA(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		responseCode string
		want         SettlementStatus
	}{
		{"FlagPaid", "02", "", StatusPaid},
		{"InquiryPaid", "01", "2002600", StatusPaid},
		{"FlagPaidOverridesError", "02", "5002600", StatusPaid},
		{"Expired", "", "4042619", StatusExpired},
		{"Cancelled", "", "4042614", StatusCancelled},
		{"NotFound", "", "4042601", StatusError},
		{"GeneralError", "", "5002600", StatusError},
		{"ExternalError", "", "5002601", StatusError},
		{"Timeout", "", "5042600", StatusPending},
		{"Unknown", "07", "1234567", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeVA(tt.status, tt.responseCode))
		})
	}
}

func TestVAStatus_Settlement(t *testing.T) {
	t.Run("FallsBackToFlagStatus", func(t *testing.T) {
		s := VAStatus{ResponseCode: "2002700", VirtualAccountData: VirtualAccountData{PaymentFlagStatus: "02"}}
		assert.Equal(t, StatusPaid, s.Settlement())
	})

	t.Run("TopLevelStatusWins", func(t *testing.T) {
		s := VAStatus{Status: "01", ResponseCode: "2002700", VirtualAccountData: VirtualAccountData{PaymentFlagStatus: "02"}}
		assert.Equal(t, StatusPending, s.Settlement())
	})
}

func TestCancelResponses(t *testing.T) {
	assert.True(t, QRISCancel{ErrCode: "0"}.Cancelled())
	assert.False(t, QRISCancel{ErrCode: "1", ErrMessage: "already paid"}.Cancelled())
	assert.True(t, VACancel{ResponseCode: "2003100"}.Cancelled())
	assert.False(t, VACancel{ResponseCode: "4043101"}.Cancelled())
}

func TestNormalizePush(t *testing.T) {
	assert.Equal(t, StatusPaid, NormalizePush("PL-X", "PL-X", "paid"))
	assert.Equal(t, StatusPaid, NormalizePush("PL-X", "PL-X", "PAID"))
	assert.Equal(t, StatusPending, NormalizePush("PL-X", "PL-Y", "paid"))
	assert.Equal(t, StatusPending, NormalizePush("", "", "paid"))
	assert.Equal(t, StatusPending, NormalizePush("PL-X", "PL-X", "pending"))
}

func TestSettlementStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusError.Terminal())
}
