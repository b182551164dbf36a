package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/metrics"

	"go.uber.org/zap"
)

// Gateway is the signed REST surface of the payment processor.
type Gateway interface {
	CreateOrder(ctx context.Context, channel Channel, req OrderRequest) (*PaymentData, error)
	GetStatus(ctx context.Context, channel Channel, id string) (StatusResponse, error)
	Cancel(ctx context.Context, channel Channel, id string) (CancelResponse, error)
}

// Signer produces the authentication headers for one request.
type Signer interface {
	Headers(method, path string, body []byte) (http.Header, error)
}

// OrderRequest is the creation body: the order details without clientId,
// expired and payer, which only travel inside the envelope.
type OrderRequest struct {
	Items              []Item  `json:"items"`
	TotalAmount        float64 `json:"totalAmount"`
	PhoneNumber        string  `json:"phoneNumber,omitempty"`
	PaymentMethod      string  `json:"paymentMethod"`
	PartnerReferenceNo string  `json:"partnerReferenceNo,omitempty"`
}

func NewOrderRequest(o OrderDetails, method, reference string) OrderRequest {
	return OrderRequest{
		Items:              o.Items,
		TotalAmount:        o.TotalAmount,
		PhoneNumber:        o.PhoneNumber,
		PaymentMethod:      method,
		PartnerReferenceNo: reference,
	}
}

type createResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	PaymentData
}

type gatewayClient struct {
	baseURL        string
	signer         Signer
	httpClient     *http.Client
	legacyVAStatus bool
}

type GatewayOption func(*gatewayClient)

func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *gatewayClient) { g.httpClient = c }
}

// WithLegacyVAStatus polls /order/status/va/{id} instead of the snap path.
func WithLegacyVAStatus() GatewayOption {
	return func(g *gatewayClient) { g.legacyVAStatus = true }
}

// ----------------- Constructor -----------------

func NewGateway(baseURL string, signer Signer, opts ...GatewayOption) Gateway {
	g := &gatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ----------------- CreateOrder -----------------

func (g *gatewayClient) CreateOrder(ctx context.Context, channel Channel, req OrderRequest) (*PaymentData, error) {
	const op = "create order"

	log := logger.FromCtx(ctx).With(
		zap.String("channel", string(channel)),
		zap.String("method", req.PaymentMethod),
		zap.Float64("amount", req.TotalAmount),
		zap.String("reference", req.PartnerReferenceNo),
	)

	path, err := channelPath("/order/create", channel)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		log.Error("Failed to marshal order request", zap.Error(err))
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	log.Info("Sending order creation to gateway")

	var res createResponse
	if err := g.do(ctx, op, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}

	if !res.Success {
		log.Warn("Gateway rejected order", zap.String("message", res.Message))
		return nil, &GatewayError{Op: op, Message: res.Message}
	}

	log.Info("Gateway order created",
		zap.String("payment_id", res.PaymentID),
		zap.String("order_id", string(res.OrderID)),
		zap.String("expires", res.PaymentExpired),
	)

	data := res.PaymentData
	return &data, nil
}

// ----------------- GetStatus -----------------

func (g *gatewayClient) GetStatus(ctx context.Context, channel Channel, id string) (StatusResponse, error) {
	const op = "get status"

	var path string
	switch channel {
	case ChannelQRIS:
		path = "/order/status/qris/" + url.PathEscape(id)
	case ChannelVA:
		if g.legacyVAStatus {
			path = "/order/status/va/" + url.PathEscape(id)
		} else {
			path = "/order/status/va/snap/" + url.PathEscape(id)
		}
	default:
		return nil, fmt.Errorf("%w: channel %q", ErrUnsupportedCategory, channel)
	}

	if channel == ChannelQRIS {
		var res QRISStatus
		if err := g.do(ctx, op, http.MethodGet, path, nil, &res); err != nil {
			return nil, err
		}
		return res, nil
	}

	var res VAStatus
	if err := g.do(ctx, op, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ----------------- Cancel -----------------

func (g *gatewayClient) Cancel(ctx context.Context, channel Channel, id string) (CancelResponse, error) {
	const op = "cancel order"

	switch channel {
	case ChannelQRIS:
		var res QRISCancel
		if err := g.do(ctx, op, http.MethodPost, "/order/cancel/qris/"+url.PathEscape(id), nil, &res); err != nil {
			return nil, err
		}
		return res, nil
	case ChannelVA:
		var res VACancel
		if err := g.do(ctx, op, http.MethodDelete, "/order/delete/va/snap/"+url.PathEscape(id), nil, &res); err != nil {
			return nil, err
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: channel %q", ErrUnsupportedCategory, channel)
	}
}

// do signs, sends and decodes one gateway call.
func (g *gatewayClient) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	log := logger.FromCtx(ctx).With(
		zap.String("op", op),
		zap.String("http_method", method),
		zap.String("path", path),
	)

	headers, err := g.signer.Headers(method, path, body)
	if err != nil {
		log.Error("Failed signing request", zap.Error(err))
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return err
	}

	req.Header = headers
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	timer := metrics.StartTimer()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("Gateway request failed", zap.Error(err), zap.Duration("duration", timer.Duration()))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return &TransportError{Op: op, Err: fmt.Errorf("failed to read gateway response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("Gateway returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", timer.Duration()),
			zap.ByteString("response", bodyBytes),
		)
		return newHTTPError(op, resp.StatusCode, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		log.Error("Failed decoding gateway response", zap.Error(err))
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response body"}
	}

	log.Debug("Gateway request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", timer.Duration()),
	)
	return nil
}

// newHTTPError lifts whatever code/message fields the gateway put in an
// error body.
func newHTTPError(op string, status int, body []byte) *GatewayError {
	var payload struct {
		Message         string `json:"message"`
		ErrCode         string `json:"errCode"`
		ErrMessage      string `json:"errMessage"`
		ResponseCode    string `json:"responseCode"`
		ResponseMessage string `json:"responseMessage"`
	}
	_ = json.Unmarshal(body, &payload)

	ge := &GatewayError{Op: op, StatusCode: status}
	for _, c := range []string{payload.ResponseCode, payload.ErrCode} {
		if c != "" {
			ge.Code = c
			break
		}
	}
	for _, m := range []string{payload.Message, payload.ResponseMessage, payload.ErrMessage} {
		if m != "" {
			ge.Message = m
			break
		}
	}
	if ge.Message == "" && ge.Code == "" {
		ge.Message = strings.TrimSpace(string(body))
	}
	return ge
}

func channelPath(prefix string, channel Channel) (string, error) {
	switch channel {
	case ChannelQRIS, ChannelVA:
		return prefix + "/" + string(channel), nil
	default:
		return "", fmt.Errorf("%w: channel %q", ErrUnsupportedCategory, channel)
	}
}
