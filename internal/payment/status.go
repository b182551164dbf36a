package payment

import "strings"

type SettlementStatus string

const (
	StatusPending   SettlementStatus = "pending"
	StatusPaid      SettlementStatus = "paid"
	StatusExpired   SettlementStatus = "expired"
	StatusCancelled SettlementStatus = "cancelled"
	StatusError     SettlementStatus = "error"
)

func (s SettlementStatus) Terminal() bool { return s != StatusPending && s != "" }

// QRIS status codes.
const (
	qrisCreated   = "00"
	qrisWaiting   = "01"
	qrisPaid      = "02"
	qrisExpired   = "03"
	qrisCancelled = "04"
	qrisFailed    = "05"

	qrisCancelOK = "0"
)

// Virtual account codes. Both the flag status and the inquiry response code
// are accepted as paid; they come from different call sites.
const (
	vaFlagPaid       = "02"
	vaInquiryPaid    = "2002600"
	vaBillExpired    = "4042619"
	vaBillNotFound   = "4042601"
	vaBillCancelled  = "4042614"
	vaCancelOK       = "2003100"
	vaGeneralError   = "5002600"
	vaExternalError  = "5002601"
	vaTimeoutPending = "5042600"
)

// StatusResponse is the tagged union of per-channel status payloads.
type StatusResponse interface {
	Channel() Channel
	Settlement() SettlementStatus
}

type QRISStatus struct {
	Status     string `json:"status"`
	ErrCode    string `json:"errCode,omitempty"`
	ErrMessage string `json:"errMessage,omitempty"`
	PaymentID  string `json:"paymentId,omitempty"`
}

func (QRISStatus) Channel() Channel { return ChannelQRIS }

func (s QRISStatus) Settlement() SettlementStatus { return NormalizeQRIS(s.Status) }

type VirtualAccountData struct {
	PaymentFlagStatus string `json:"paymentFlagStatus,omitempty"`
	VirtualAccountNo  string `json:"virtualAccountNo,omitempty"`
	PaymentRequestID  string `json:"paymentRequestId,omitempty"`
}

type VAAdditionalInfo struct {
	PaymentType string `json:"paymentType,omitempty"`
}

type VAStatus struct {
	ResponseCode       string             `json:"responseCode"`
	ResponseMessage    string             `json:"responseMessage,omitempty"`
	Status             string             `json:"status,omitempty"`
	VirtualAccountData VirtualAccountData `json:"virtualAccountData"`
	AdditionalInfo     VAAdditionalInfo   `json:"additionalInfo"`
}

func (VAStatus) Channel() Channel { return ChannelVA }

func (s VAStatus) Settlement() SettlementStatus {
	status := s.Status
	if status == "" {
		status = s.VirtualAccountData.PaymentFlagStatus
	}
	return NormalizeVA(status, s.ResponseCode)
}

// NormalizeQRIS maps a QRIS status code. Unknown codes stay pending.
func NormalizeQRIS(status string) SettlementStatus {
	switch strings.TrimSpace(status) {
	case qrisPaid:
		return StatusPaid
	case qrisExpired:
		return StatusExpired
	case qrisCancelled:
		return StatusCancelled
	case qrisFailed:
		return StatusError
	default:
		// qrisCreated, qrisWaiting and anything unrecognized
		return StatusPending
	}
}

// NormalizeVA maps a virtual-account status. Unknown codes stay pending.
func NormalizeVA(status, responseCode string) SettlementStatus {
	status = strings.TrimSpace(status)
	responseCode = strings.TrimSpace(responseCode)

	if status == vaFlagPaid || responseCode == vaInquiryPaid {
		return StatusPaid
	}

	switch responseCode {
	case vaBillExpired:
		return StatusExpired
	case vaBillCancelled:
		return StatusCancelled
	case vaBillNotFound, vaGeneralError, vaExternalError:
		return StatusError
	default:
		// includes vaTimeoutPending
		return StatusPending
	}
}

// CancelResponse is the tagged union of per-channel cancel payloads.
type CancelResponse interface {
	Channel() Channel
	Cancelled() bool
	Code() string
	Message() string
}

type QRISCancel struct {
	ErrCode    string `json:"errCode"`
	ErrMessage string `json:"errMessage,omitempty"`
}

func (QRISCancel) Channel() Channel  { return ChannelQRIS }
func (c QRISCancel) Cancelled() bool { return strings.TrimSpace(c.ErrCode) == qrisCancelOK }
func (c QRISCancel) Code() string    { return c.ErrCode }
func (c QRISCancel) Message() string { return c.ErrMessage }

type VACancel struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage,omitempty"`
}

func (VACancel) Channel() Channel  { return ChannelVA }
func (c VACancel) Cancelled() bool { return strings.TrimSpace(c.ResponseCode) == vaCancelOK }
func (c VACancel) Code() string    { return c.ResponseCode }
func (c VACancel) Message() string { return c.ResponseMessage }

// NormalizePush maps a push-channel event. Events for another payment are
// cross-talk and never count as settlement of the current one.
func NormalizePush(currentPaymentID, eventPaymentID, status string) SettlementStatus {
	if currentPaymentID == "" || eventPaymentID != currentPaymentID {
		return StatusPending
	}
	if strings.EqualFold(strings.TrimSpace(status), string(StatusPaid)) {
		return StatusPaid
	}
	return StatusPending
}
