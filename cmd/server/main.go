package main

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"paylink-checkout/internal/config"
	"paylink-checkout/internal/db"
	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/middleware"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/payment/proxy"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(addr string, handler http.Handler) error {
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := initDBFunc(cfg)
	switch {
	case err == nil:
		defer database.Close()
	case errors.Is(err, db.ErrNotConfigured):
		logger.L().Info("DB_URL not set, settlement journal endpoints disabled")
	default:
		return err
	}

	handler, err := newServer(cfg, database)
	if err != nil {
		return err
	}

	logger.L().Info("Server started", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	return startServerFunc(":"+cfg.AppPort, handler)
}

// newServer wires the proxy endpoint. database may be nil.
func newServer(cfg *config.Config, database *sql.DB) (http.Handler, error) {
	codec, err := envelope.NewCodec(envelope.KeyFromString(cfg.PayloadEncryptionKey), []byte(cfg.PayloadHMACKey))
	if err != nil {
		return nil, err
	}

	var events http.HandlerFunc
	if database != nil && cfg.InternalSecretKey != "" {
		events = proxy.NewEventsHandler(payment.NewRepository(database)).ListEvents
	}

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)
	return setupRouter(limiter.Middleware, proxy.NewHandler(codec).GetPayment, events, cfg.InternalSecretKey), nil
}

func setupRouter(rateLimit func(http.Handler) http.Handler, paymentHandler, eventsHandler http.HandlerFunc, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(rateLimit)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/api/payment", paymentHandler)

	if eventsHandler != nil {
		r.With(middleware.RequireServiceAuth(internalKey)).
			Get("/internal/settlements/{paymentId}", eventsHandler)
	}

	return r
}
