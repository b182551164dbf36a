package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paylink-checkout/internal/logger"

	"go.uber.org/zap"
)

// MethodSource lists the payment methods a client may offer. Reference data
// owned by the backend.
type MethodSource interface {
	ListMethods(ctx context.Context, clientID string) ([]PaymentMethod, error)
}

type backendClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackendClient(baseURL string, httpClient *http.Client) MethodSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &backendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (b *backendClient) ListMethods(ctx context.Context, clientID string) ([]PaymentMethod, error) {
	const op = "list payment methods"
	log := logger.FromCtx(ctx).With(zap.String("client_id", clientID))

	endpoint := b.baseURL + "/available-payment?clientId=" + url.QueryEscape(clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error("Failed building request", zap.Error(err))
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Error("Request to backend failed", zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read backend response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Backend returned error",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, newHTTPError(op, resp.StatusCode, bodyBytes)
	}

	var res struct {
		Data []PaymentMethod `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding payment methods", zap.Error(err))
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response body"}
	}

	log.Info("Loaded payment methods", zap.Int("count", len(res.Data)))
	return res.Data, nil
}
