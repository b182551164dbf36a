package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryQRIS           Category = "QRIS"
	CategoryVirtualAccount Category = "VIRTUAL ACCOUNT"
	CategoryRetail         Category = "RETAIL"
)

// Channel selects the gateway endpoint family. Every category maps onto
// exactly one channel, or none when the gateway cannot create it.
type Channel string

const (
	ChannelQRIS Channel = "qris"
	ChannelVA   Channel = "va"
)

func (c Category) Channel() (Channel, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(string(c)))) {
	case CategoryQRIS:
		return ChannelQRIS, nil
	case CategoryVirtualAccount, "VA", "VIRTUAL_ACCOUNT":
		return ChannelVA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, string(c))
	}
}

// FlexString accepts both JSON strings and numbers. The gateway is not
// consistent about quoting amounts and identifiers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

type Item struct {
	ID       FlexString `json:"id"`
	Name     string     `json:"name" validate:"required"`
	Price    float64    `json:"price" validate:"gte=0"`
	Quantity int        `json:"quantity" validate:"gte=1"`
	Type     string     `json:"type,omitempty"`
}

// OrderDetails is created once at method selection and only Expired is
// re-derived afterwards (cancel or retry).
type OrderDetails struct {
	Items         []Item  `json:"items" validate:"required,min=1,dive"`
	TotalAmount   float64 `json:"totalAmount" validate:"gt=0"`
	Payer         string  `json:"payer,omitempty"`
	PhoneNumber   string  `json:"phoneNumber,omitempty"`
	ClientID      string  `json:"clientId" validate:"required"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	// Expired is a 14-digit Jakarta timestamp.
	Expired string `json:"expired,omitempty"`
}

type PaymentMethod struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	IsActive bool     `json:"isActive"`
	Image    string   `json:"image,omitempty"`
}

// PaymentData is the gateway's answer to order creation. Immutable once
// received.
type PaymentData struct {
	ID               FlexString `json:"id,omitempty"`
	PaymentID        string     `json:"paymentId"`
	StoreID          string     `json:"storeId,omitempty"`
	OrderID          FlexString `json:"orderId"`
	TotalAmount      FlexString `json:"totalAmount"`
	PaymentExpired   string     `json:"paymentExpired"`
	QRCode           string     `json:"qrCode,omitempty"`
	QRURL            string     `json:"qrUrl,omitempty"`
	VirtualAccountNo string     `json:"virtualAccountNo,omitempty"`
}

// RefID is the identifier used in status and cancel paths.
func (p PaymentData) RefID() string {
	if p.ID != "" {
		return string(p.ID)
	}
	return p.PaymentID
}

// PaymentCode is what the payer has to enter or scan.
func (p PaymentData) PaymentCode() string {
	switch {
	case p.VirtualAccountNo != "":
		return p.VirtualAccountNo
	case p.QRCode != "":
		return p.QRCode
	default:
		return p.QRURL
	}
}

// PaymentDetails is the checkout session envelope carried between pages.
type PaymentDetails struct {
	IsPaymentProcessing   bool            `json:"isPaymentProcessing"`
	SelectedPaymentMethod *PaymentMethod  `json:"selectedPaymentMethod,omitempty"`
	PaymentMethods        []PaymentMethod `json:"paymentMethods"`
	OrderDetails          OrderDetails    `json:"orderDetails"`
	PaymentData           *PaymentData    `json:"paymentData,omitempty"`
}

// Validate enforces that payment data never travels without a selected
// method drawn from the offered list.
func (d PaymentDetails) Validate() error {
	if d.PaymentData == nil {
		return nil
	}
	if d.SelectedPaymentMethod == nil {
		return fmt.Errorf("%w: payment data without a selected method", ErrInconsistentSession)
	}
	if _, ok := FindMethod(d.PaymentMethods, d.SelectedPaymentMethod.Name); !ok {
		return fmt.Errorf("%w: selected method %q is not offered", ErrInconsistentSession, d.SelectedPaymentMethod.Name)
	}
	if d.PaymentData.RefID() == "" {
		return fmt.Errorf("%w: payment data has no identifier", ErrInconsistentSession)
	}
	return nil
}

// Expiry returns the gateway expiry when an order exists, otherwise the
// order-level expiry.
func (d PaymentDetails) Expiry() string {
	if d.PaymentData != nil && d.PaymentData.PaymentExpired != "" {
		return d.PaymentData.PaymentExpired
	}
	return d.OrderDetails.Expired
}

// Channel of the selected method.
func (d PaymentDetails) Channel() (Channel, error) {
	if d.SelectedPaymentMethod == nil {
		return "", ErrNoMethodSelected
	}
	return d.SelectedPaymentMethod.Category.Channel()
}
