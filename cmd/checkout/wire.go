package main

import (
	"database/sql"
	"errors"
	"io"

	"paylink-checkout/internal/checkout"
	"paylink-checkout/internal/config"
	"paylink-checkout/internal/db"
	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/notifier"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/signature"

	"go.uber.org/zap"
)

type wiring struct {
	orch     *checkout.Orchestrator
	nav      *navigator
	database *sql.DB
}

func wire(cfg *config.Config, out io.Writer, postParent bool) (*wiring, error) {
	logger.Init(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	signer, err := signature.NewSigner(cfg.GatewaySignatureSecret, cfg.GatewayPartnerID)
	if err != nil {
		return nil, err
	}

	codec, err := envelope.NewCodec(envelope.KeyFromString(cfg.PayloadEncryptionKey), []byte(cfg.PayloadHMACKey))
	if err != nil {
		return nil, err
	}

	w := &wiring{nav: newNavigator()}

	deps := checkout.Deps{
		Gateway:   payment.NewGateway(cfg.GatewayBaseURL, signer),
		Methods:   payment.NewBackendClient(cfg.BackendBaseURL, nil),
		Codec:     codec,
		Navigator: w.nav,
		Push:      checkout.NewPushDialer(notifier.New()),
		Presenter: newConsolePresenter(out),
	}
	if postParent {
		deps.Frame = &framePrinter{out: out}
	}

	database, err := db.NewDatabase(cfg)
	switch {
	case err == nil:
		w.database = database
		deps.Journal = payment.NewRepository(database)
	case errors.Is(err, db.ErrNotConfigured):
		logger.L().Debug("Settlement journal disabled")
	default:
		logger.L().Warn("Settlement journal unavailable, continuing without it", zap.Error(err))
	}

	w.orch, err = checkout.New(deps, checkout.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		WebSocketURL:  cfg.WebSocketURL,
	})
	if err != nil {
		w.close()
		return nil, err
	}
	return w, nil
}

func (w *wiring) close() {
	if w.orch != nil {
		w.orch.Close()
	}
	if w.database != nil {
		_ = w.database.Close()
	}
	logger.Sync()
}
