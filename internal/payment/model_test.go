package payment

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"20141","b":20141,"c":null}`), &v))
	assert.Equal(t, FlexString("20141"), v.A)
	assert.Equal(t, FlexString("20141"), v.B)
	assert.Equal(t, FlexString(""), v.C)

	err := json.Unmarshal([]byte(`{"a":true}`), &v)
	assert.Error(t, err)
}

func TestCategory_Channel(t *testing.T) {
	ch, err := CategoryQRIS.Channel()
	require.NoError(t, err)
	assert.Equal(t, ChannelQRIS, ch)

	ch, err = Category("virtual account").Channel()
	require.NoError(t, err)
	assert.Equal(t, ChannelVA, ch)

	_, err = CategoryRetail.Channel()
	assert.True(t, errors.Is(err, ErrUnsupportedCategory))
}

func TestPaymentDetails_Validate(t *testing.T) {
	methods := []PaymentMethod{
		{Name: "QRIS", Category: CategoryQRIS, IsActive: true},
		{Name: "BCA", Category: CategoryVirtualAccount, IsActive: true},
	}

	t.Run("NoPaymentData", func(t *testing.T) {
		d := PaymentDetails{PaymentMethods: methods}
		assert.NoError(t, d.Validate())
	})

	t.Run("Consistent", func(t *testing.T) {
		d := PaymentDetails{
			PaymentMethods:        methods,
			SelectedPaymentMethod: &methods[1],
			PaymentData:           &PaymentData{PaymentID: "PL-V"},
		}
		assert.NoError(t, d.Validate())
	})

	t.Run("DataWithoutMethod", func(t *testing.T) {
		d := PaymentDetails{PaymentMethods: methods, PaymentData: &PaymentData{PaymentID: "PL-V"}}
		assert.True(t, errors.Is(d.Validate(), ErrInconsistentSession))
	})

	t.Run("MethodNotOffered", func(t *testing.T) {
		d := PaymentDetails{
			PaymentMethods:        methods,
			SelectedPaymentMethod: &PaymentMethod{Name: "OVO"},
			PaymentData:           &PaymentData{PaymentID: "PL-V"},
		}
		assert.True(t, errors.Is(d.Validate(), ErrInconsistentSession))
	})

	t.Run("MissingIdentifier", func(t *testing.T) {
		d := PaymentDetails{
			PaymentMethods:        methods,
			SelectedPaymentMethod: &methods[0],
			PaymentData:           &PaymentData{},
		}
		assert.True(t, errors.Is(d.Validate(), ErrInconsistentSession))
	})
}

func TestPaymentDetails_Expiry(t *testing.T) {
	d := PaymentDetails{OrderDetails: OrderDetails{Expired: "20250131100933"}}
	assert.Equal(t, "20250131100933", d.Expiry())

	d.PaymentData = &PaymentData{PaymentExpired: "2025-01-31T10:00:00+07:00"}
	assert.Equal(t, "2025-01-31T10:00:00+07:00", d.Expiry())
}

func TestPaymentDetails_Channel(t *testing.T) {
	_, err := PaymentDetails{}.Channel()
	assert.True(t, errors.Is(err, ErrNoMethodSelected))

	ch, err := PaymentDetails{SelectedPaymentMethod: &PaymentMethod{Category: CategoryVirtualAccount}}.Channel()
	require.NoError(t, err)
	assert.Equal(t, ChannelVA, ch)
}

func TestPaymentData_RefIDAndCode(t *testing.T) {
	assert.Equal(t, "PL-X", PaymentData{PaymentID: "PL-X"}.RefID())
	assert.Equal(t, "7", PaymentData{ID: "7", PaymentID: "PL-X"}.RefID())
	assert.Equal(t, "https://qr", PaymentData{QRURL: "https://qr"}.PaymentCode())
}
