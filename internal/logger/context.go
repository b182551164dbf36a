package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	paymentIDKey ctxKey = "payment_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithPaymentID tags every log line of a checkout session with the gateway
// payment identifier once it is known.
func WithPaymentID(ctx context.Context, paymentID string) context.Context {
	return context.WithValue(ctx, paymentIDKey, paymentID)
}

func PaymentIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(paymentIDKey).(string)
	return v
}

// FromCtx returns logger with request_id and payment_id automatically added
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if payID := PaymentIDFrom(ctx); payID != "" {
		l = l.With(zap.String("payment_id", payID))
	}
	return l
}
