package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"paylink-checkout/internal/countdown"
	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/notifier"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Page paths, each carrying the envelope in ?q=.
const (
	PathSelection  = "/payment"
	PathProcessing = "/payment/processing"
	PathSuccess    = "/payment/success"
)

const defaultOrderTTL = 30 * time.Minute

var validate = validator.New()

type Deps struct {
	Gateway   payment.Gateway
	Methods   payment.MethodSource
	Codec     Codec
	Navigator Navigator

	// Optional. Without Push the session relies on polling only.
	Push      Dialer
	Presenter Presenter
	Frame     FrameNotifier
	Journal   Journal
}

type Config struct {
	PublicBaseURL     string
	WebSocketURL      string
	OrderTTL          time.Duration
	CountdownInterval time.Duration
	Now               func() time.Time
}

// Orchestrator drives one payer through a checkout. All state lives in the
// envelope; the orchestrator only holds what the current page needs.
type Orchestrator struct {
	deps Deps
	cfg  Config
	id   string

	mu          sync.Mutex
	state       State
	details     payment.PaymentDetails
	gen         uint64
	settled     bool
	softExpired bool
	closed      bool
	session     resources

	wg sync.WaitGroup
}

// resources owned by one processing page load.
type resources struct {
	ctx       context.Context
	stop      context.CancelFunc
	handle    PushHandle
	countdown *countdown.Countdown
}

func (r resources) closePush() {
	if r.handle != nil {
		r.handle.Close()
	}
}

func (r resources) stopTimer() {
	if r.countdown != nil {
		r.countdown.Stop()
	}
}

func (r resources) release() {
	r.closePush()
	r.stopTimer()
	if r.stop != nil {
		r.stop()
	}
}

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Gateway == nil:
		return nil, errors.New("checkout: gateway is required")
	case deps.Methods == nil:
		return nil, errors.New("checkout: method source is required")
	case deps.Codec == nil:
		return nil, errors.New("checkout: codec is required")
	case deps.Navigator == nil:
		return nil, errors.New("checkout: navigator is required")
	}

	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = defaultOrderTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Orchestrator{
		deps: deps,
		cfg:  cfg,
		id:   uuid.NewString(),
	}, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Settled reports whether the current processing page has reached its
// terminal outcome. No further navigation follows unless the outcome is paid.
func (o *Orchestrator) Settled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settled
}

// Details returns a copy of the current session.
func (o *Orchestrator) Details() payment.PaymentDetails {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.details
}

// ----------------- Start -----------------

// Start validates a cart intent, loads the client's payment methods and
// returns the method selection URL for a fresh order-less envelope.
func (o *Orchestrator) Start(ctx context.Context, order payment.OrderDetails) (string, error) {
	log := o.log(ctx).With(zap.String("client_id", order.ClientID))

	if o.isClosed() {
		return "", ErrClosed
	}

	// 1. Validate order
	if err := validate.Struct(order); err != nil {
		log.Warn("Rejected order details", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	// 2. Load methods
	methods, err := o.deps.Methods.ListMethods(ctx, order.ClientID)
	if err != nil {
		log.Error("Failed to load payment methods", zap.Error(err))
		o.toast(err)
		return "", err
	}

	// 3. Seal an order-less envelope
	order.PaymentMethod = ""
	order.Expired = utils.FormatCompact(o.cfg.Now().Add(o.cfg.OrderTTL))
	details := payment.PaymentDetails{
		PaymentMethods: methods,
		OrderDetails:   order,
	}

	token, err := o.deps.Codec.Encode(details)
	if err != nil {
		log.Error("Failed sealing envelope", zap.Error(err))
		return "", err
	}

	o.mu.Lock()
	stale := o.detachLocked()
	o.details = details
	o.setStateLocked(log, StateSelectingMethod)
	o.mu.Unlock()
	stale.release()

	log.Info("Checkout started",
		zap.Int("methods", len(methods)),
		zap.String("expired", order.Expired),
	)
	return o.pageURL(PathSelection, token), nil
}

// ----------------- Selection -----------------

// LoadSelection opens the method selection page. An envelope that already
// carries an order is forwarded to the processing page.
func (o *Orchestrator) LoadSelection(ctx context.Context, q string) (*SelectionView, error) {
	log := o.log(ctx)

	var details payment.PaymentDetails
	if err := o.open(q, &details); err != nil {
		log.Warn("Selection page without a usable envelope", zap.Error(err))
		o.deps.Presenter.NotFound(msgNoOrder)
		return nil, fmt.Errorf("%w: %w", ErrNoOrder, err)
	}

	view := &SelectionView{
		Order:    details.OrderDetails,
		Groups:   payment.GroupMethods(details.PaymentMethods),
		Selected: details.SelectedPaymentMethod,
	}

	if details.PaymentData != nil {
		log.Info("Order already created, resuming processing",
			zap.String("payment_id", details.PaymentData.PaymentID),
		)
		return view, o.deps.Navigator.Navigate(ctx, o.pageURL(PathProcessing, q))
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.state == StateCreating {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	stale := o.detachLocked()
	o.details = details
	o.settled = false
	o.softExpired = false
	o.setStateLocked(log, StateSelectingMethod)
	o.mu.Unlock()
	stale.release()

	return view, nil
}

// SelectMethod picks one of the offered methods. Inactive methods are shown
// but cannot be chosen.
func (o *Orchestrator) SelectMethod(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateSelectingMethod {
		return fmt.Errorf("%w: %s", ErrInvalidState, o.state)
	}

	m, ok := payment.FindMethod(o.details.PaymentMethods, name)
	if !ok {
		return fmt.Errorf("%w: %q", payment.ErrMethodNotFound, name)
	}
	if !m.IsActive {
		return fmt.Errorf("%w: %q", payment.ErrMethodInactive, m.Name)
	}

	o.details.SelectedPaymentMethod = &m
	o.details.OrderDetails.PaymentMethod = m.Name
	return nil
}

// ----------------- Confirm -----------------

// Confirm creates the gateway order for the selected method and moves the
// payer to the processing page. Failures leave the session in method
// selection so the payer can retry.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	log := o.log(ctx)

	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.state == StateCreating:
		o.mu.Unlock()
		return ErrBusy
	case o.state != StateSelectingMethod:
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	case o.details.SelectedPaymentMethod == nil:
		o.mu.Unlock()
		return payment.ErrNoMethodSelected
	}

	method := *o.details.SelectedPaymentMethod
	channel, err := method.Category.Channel()
	if err != nil {
		o.mu.Unlock()
		o.toast(err)
		return err
	}
	order := o.details.OrderDetails
	o.setStateLocked(log, StateCreating)
	o.mu.Unlock()

	log = log.With(
		zap.String("method", method.Name),
		zap.String("category", string(method.Category)),
	)

	reference := utils.GenerateReferenceNumber(o.cfg.Now())
	data, err := o.deps.Gateway.CreateOrder(ctx, channel, payment.NewOrderRequest(order, method.Name, reference))
	if err != nil {
		log.Error("Order creation failed", zap.Error(err))
		o.failCreate(log)
		o.toast(err)
		return err
	}

	o.mu.Lock()
	o.details.PaymentData = data
	o.details.IsPaymentProcessing = true
	token, err := o.deps.Codec.Encode(o.details)
	if err != nil {
		o.details.PaymentData = nil
		o.details.IsPaymentProcessing = false
		o.setStateLocked(log, StateSelectingMethod)
		o.mu.Unlock()
		log.Error("Failed sealing processing envelope", zap.Error(err))
		o.toast(err)
		return err
	}
	o.setStateLocked(log, StateAwaitingSettlement)
	o.mu.Unlock()

	log.Info("Order created",
		zap.String("payment_id", data.PaymentID),
		zap.String("order_id", string(data.OrderID)),
		zap.String("reference", reference),
	)
	return o.deps.Navigator.Navigate(ctx, o.pageURL(PathProcessing, token))
}

func (o *Orchestrator) failCreate(log *zap.Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateCreating {
		o.setStateLocked(log, StateSelectingMethod)
	}
}

// ----------------- Resume -----------------

// Resume opens the processing page: it starts the countdown, subscribes to
// push events and fires one status poll. The first paid signal wins.
func (o *Orchestrator) Resume(ctx context.Context, q string) error {
	var (
		details payment.PaymentDetails
		expiry  time.Time
	)

	err := o.open(q, &details)
	if err == nil && details.PaymentData == nil {
		err = fmt.Errorf("%w: envelope carries no payment data", payment.ErrInconsistentSession)
	}
	if err == nil {
		_, err = details.Channel()
	}
	if err == nil {
		expiry, err = utils.ParseExpiry(details.Expiry())
	}
	if err != nil {
		o.log(ctx).Warn("Processing page without a usable envelope", zap.Error(err))
		o.deps.Presenter.NotFound(msgProcessFailed)
		return fmt.Errorf("%w: %w", ErrProcessFailed, err)
	}

	ctx = logger.WithPaymentID(ctx, details.PaymentData.PaymentID)
	log := o.log(ctx)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	stale := o.detachLocked()

	o.gen++
	gen := o.gen
	o.details = details
	o.settled = false
	o.softExpired = false
	o.setStateLocked(log, StateAwaitingSettlement)

	sctx, stop := context.WithCancel(ctx)
	o.session = resources{
		ctx:  sctx,
		stop: stop,
		countdown: countdown.Start(sctx, expiry,
			countdown.WithClock(o.cfg.Now),
			countdown.WithInterval(o.cfg.CountdownInterval),
		),
	}

	o.wg.Add(2)
	go o.watchCountdown(sctx, gen, o.session.countdown)
	go o.pollOnce(sctx, gen)
	o.connectLocked(log, gen)
	o.mu.Unlock()

	stale.release()

	log.Info("Awaiting settlement",
		zap.String("expires", expiry.Format(time.RFC3339)),
	)
	return nil
}

// connectLocked subscribes to push events for the current session.
func (o *Orchestrator) connectLocked(log *zap.Logger, gen uint64) {
	if o.deps.Push == nil || o.cfg.WebSocketURL == "" {
		return
	}

	h, err := o.deps.Push.Connect(o.session.ctx, o.cfg.WebSocketURL)
	if err != nil {
		log.Warn("Push channel unavailable, relying on polling", zap.Error(err))
		return
	}
	o.session.handle = h

	o.wg.Add(1)
	go o.watchPush(o.session.ctx, gen, h)
}

// CheckStatus polls the gateway once and applies the result.
func (o *Orchestrator) CheckStatus(ctx context.Context) (payment.SettlementStatus, error) {
	o.mu.Lock()
	gen := o.gen
	o.mu.Unlock()

	st, raw, err := o.fetchStatus(ctx)
	if err != nil {
		return "", err
	}
	o.settle(ctx, gen, st, payment.SourcePoll, raw)
	return st, nil
}

func (o *Orchestrator) fetchStatus(ctx context.Context) (payment.SettlementStatus, payment.StatusResponse, error) {
	o.mu.Lock()
	data := o.details.PaymentData
	channel, err := o.details.Channel()
	o.mu.Unlock()

	if data == nil {
		return "", nil, ErrNoOrder
	}
	if err != nil {
		return "", nil, err
	}

	res, err := o.deps.Gateway.GetStatus(ctx, channel, data.RefID())
	if err != nil {
		return "", nil, err
	}
	return res.Settlement(), res, nil
}

func (o *Orchestrator) pollOnce(ctx context.Context, gen uint64) {
	defer o.wg.Done()

	st, raw, err := o.fetchStatus(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log(ctx).Warn("Status poll failed", zap.Error(err))
		o.toast(err)
		return
	}
	o.settle(ctx, gen, st, payment.SourcePoll, raw)
}

// watchPush follows one push handle. Every reopen triggers a status poll
// since frames sent while the channel was down are lost.
func (o *Orchestrator) watchPush(ctx context.Context, gen uint64, h PushHandle) {
	defer o.wg.Done()
	log := o.log(ctx)

	for {
		select {
		case <-h.Reopened():
			log.Info("Push channel reopened, polling status")
			o.wg.Add(1)
			go o.pollOnce(ctx, gen)
		case ev, ok := <-h.Events():
			if !ok {
				return
			}
			o.onPush(ctx, log, gen, ev)
		}
	}
}

func (o *Orchestrator) onPush(ctx context.Context, log *zap.Logger, gen uint64, ev notifier.Event) {
	o.mu.Lock()
	current := ""
	if o.gen == gen && o.details.PaymentData != nil {
		current = o.details.PaymentData.PaymentID
	}
	o.mu.Unlock()

	if payment.NormalizePush(current, ev.PaymentID, ev.Status) != payment.StatusPaid {
		log.Debug("Ignoring push event",
			zap.String("event_payment_id", ev.PaymentID),
			zap.String("event_status", ev.Status),
		)
		return
	}
	o.settle(ctx, gen, payment.StatusPaid, payment.SourcePush, ev)
}

func (o *Orchestrator) watchCountdown(ctx context.Context, gen uint64, cd *countdown.Countdown) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case remaining := <-cd.C():
			o.deps.Presenter.Countdown(remaining)
			if remaining > 0 {
				continue
			}

			o.mu.Lock()
			expire := o.gen == gen && !o.softExpired && o.state == StateAwaitingSettlement
			if expire {
				o.softExpired = true
				o.setStateLocked(o.log(ctx), StateExpired)
			}
			o.mu.Unlock()

			if expire {
				o.log(ctx).Info("Order expired while pending")
				o.deps.Presenter.ExpiredBanner()
			}
		}
	}
}

// settle applies a terminal status. Only the first terminal signal of a
// page load is acted upon.
func (o *Orchestrator) settle(ctx context.Context, gen uint64, st payment.SettlementStatus, source string, raw any) {
	if !st.Terminal() {
		return
	}
	log := o.log(ctx).With(
		zap.String("source", source),
		zap.String("status", string(st)),
	)

	o.mu.Lock()
	if o.gen != gen || o.settled {
		o.mu.Unlock()
		log.Debug("Ignoring late settlement signal")
		return
	}

	switch o.state {
	case StateAwaitingSettlement, StateCancelling:
	case StateExpired:
		// a soft expiry still honours a payment made in time
		if !o.softExpired || st != payment.StatusPaid {
			o.mu.Unlock()
			return
		}
	default:
		o.mu.Unlock()
		return
	}

	o.settled = true
	session := o.detachLocked()
	details := o.details

	var (
		token  string
		encErr error
	)
	switch st {
	case payment.StatusPaid:
		token, encErr = o.deps.Codec.Encode(details)
		o.setStateLocked(log, StatePaid)
	case payment.StatusExpired:
		o.setStateLocked(log, StateExpired)
	case payment.StatusCancelled:
		o.setStateLocked(log, StateCancelled)
	default:
		o.setStateLocked(log, StateError)
	}
	o.mu.Unlock()

	defer session.release()
	session.closePush()
	session.stopTimer()

	o.record(ctx, details, st, source, raw)

	if st != payment.StatusPaid {
		msg := terminalMessage(st)
		log.Warn("Payment ended without settlement")
		o.deps.Presenter.Toast(msg)
		o.post(ParentMessage{Success: false, Error: msg})
		return
	}

	if encErr != nil {
		log.Error("Failed sealing success envelope", zap.Error(encErr))
		o.toast(encErr)
		o.post(ParentMessage{Success: false, Error: msgProcessFailed})
		return
	}

	log.Info("Payment settled")
	if err := o.deps.Navigator.Navigate(ctx, o.pageURL(PathSuccess, token)); err != nil {
		log.Error("Failed navigating to success page", zap.Error(err))
	}
	o.post(ParentMessage{Success: true, Data: &details})
}

func terminalMessage(st payment.SettlementStatus) string {
	switch st {
	case payment.StatusExpired:
		return msgExpired
	case payment.StatusCancelled:
		return "Order was cancelled"
	default:
		return "Payment failed"
	}
}

// ----------------- Cancel -----------------

// Cancel asks the gateway to void the pending order and, once confirmed,
// sends the payer back to method selection with a fresh expiry.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	log := o.log(ctx)

	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.state == StateCancelling:
		o.mu.Unlock()
		return ErrBusy
	case o.state != StateAwaitingSettlement,
		o.softExpired,
		o.session.countdown == nil,
		o.session.countdown.Remaining() <= 0:
		o.mu.Unlock()
		return ErrCancelDisabled
	}

	gen := o.gen
	channel, err := o.details.Channel()
	if err != nil {
		o.mu.Unlock()
		return err
	}
	id := o.details.PaymentData.RefID()
	handle := o.session.handle
	o.setStateLocked(log, StateCancelling)
	o.mu.Unlock()

	log = log.With(zap.String("channel", string(channel)), zap.String("ref_id", id))

	o.suppressReconnect()
	res, err := o.deps.Gateway.Cancel(ctx, channel, id)
	if err == nil && !res.Cancelled() {
		err = &payment.GatewayError{Op: "cancel order", Code: res.Code(), Message: res.Message()}
	}

	if err != nil {
		log.Error("Cancel failed", zap.Error(err))
		o.allowReconnect()

		o.mu.Lock()
		if o.gen == gen && o.state == StateCancelling {
			o.setStateLocked(log, StateAwaitingSettlement)
			if handle != nil && handle.State() == notifier.Closed {
				log.Info("Push channel dropped during cancel, reconnecting")
				o.connectLocked(log, gen)
				o.wg.Add(1)
				go o.pollOnce(o.session.ctx, gen)
			}
		}
		o.mu.Unlock()

		o.toast(err)
		return err
	}

	o.mu.Lock()
	// a poll may have observed the cancellation first
	cancelledByPoll := o.gen == gen && o.state == StateCancelled && o.settled
	if o.gen != gen || (o.state != StateCancelling && !cancelledByPoll) {
		state := o.state
		o.mu.Unlock()
		o.allowReconnect()
		log.Warn("Cancel confirmed after the session moved on", zap.Stringer("state", state))
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	o.settled = true
	session := o.detachLocked()
	cancelled := o.details

	fresh := payment.PaymentDetails{
		PaymentMethods: cancelled.PaymentMethods,
		OrderDetails:   cancelled.OrderDetails,
	}
	fresh.OrderDetails.PaymentMethod = ""
	fresh.OrderDetails.Expired = utils.FormatCompact(o.cfg.Now().Add(o.cfg.OrderTTL))
	o.details = fresh
	o.setStateLocked(log, StateCancelled)
	o.mu.Unlock()

	session.release()
	o.allowReconnect()
	if !cancelledByPoll {
		o.record(ctx, cancelled, payment.StatusCancelled, payment.SourceCancel, res)
	}

	token, err := o.deps.Codec.Encode(fresh)
	if err != nil {
		log.Error("Failed sealing selection envelope", zap.Error(err))
		o.toast(err)
		return err
	}

	log.Info("Order cancelled", zap.String("expired", fresh.OrderDetails.Expired))
	return o.deps.Navigator.Navigate(ctx, o.pageURL(PathSelection, token))
}

func (o *Orchestrator) suppressReconnect() {
	if o.deps.Push != nil {
		o.deps.Push.SuppressReconnect()
	}
}

func (o *Orchestrator) allowReconnect() {
	if o.deps.Push != nil {
		o.deps.Push.AllowReconnect()
	}
}

// ----------------- Views -----------------

// SuccessView reads the receipt from a success envelope.
func (o *Orchestrator) SuccessView(ctx context.Context, q string) (*Receipt, error) {
	var details payment.PaymentDetails
	err := o.open(q, &details)
	if err == nil && details.PaymentData == nil {
		err = fmt.Errorf("%w: envelope carries no payment data", payment.ErrInconsistentSession)
	}
	if err != nil {
		o.log(ctx).Warn("Success page without a usable envelope", zap.Error(err))
		o.deps.Presenter.NotFound(msgNoOrder)
		return nil, fmt.Errorf("%w: %w", ErrNoOrder, err)
	}

	data := *details.PaymentData
	var method payment.PaymentMethod
	if details.SelectedPaymentMethod != nil {
		method = *details.SelectedPaymentMethod
	}
	amount := formatAmount(data.TotalAmount, details.OrderDetails.TotalAmount)

	return &Receipt{
		OrderID:      string(data.OrderID),
		PaymentID:    data.PaymentID,
		Method:       method.Name,
		Amount:       amount,
		PaymentCode:  data.PaymentCode(),
		Instructions: instructions(method, data, amount),
	}, nil
}

// ProcessingView snapshots the page shown while waiting for settlement.
func (o *Orchestrator) ProcessingView() (*ProcessingView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.details.PaymentData == nil || o.details.SelectedPaymentMethod == nil {
		return nil, ErrNoOrder
	}

	data := *o.details.PaymentData
	method := *o.details.SelectedPaymentMethod
	amount := formatAmount(data.TotalAmount, o.details.OrderDetails.TotalAmount)

	var remaining int64
	if o.session.countdown != nil {
		remaining = o.session.countdown.Remaining()
	} else if at, err := utils.ParseExpiry(o.details.Expiry()); err == nil {
		remaining = countdown.Remaining(at, o.cfg.Now())
	}

	return &ProcessingView{
		State:        o.state,
		Method:       method,
		PaymentData:  data,
		Amount:       amount,
		Remaining:    remaining,
		CanCancel:    o.state == StateAwaitingSettlement && !o.softExpired && remaining > 0,
		Instructions: instructions(method, data, amount),
	}, nil
}

func instructions(method payment.PaymentMethod, data payment.PaymentData, amount string) []string {
	expiry := data.PaymentExpired
	if at, err := utils.ParseExpiry(expiry); err == nil {
		expiry = at.In(utils.JakartaLocation()).Format("02 Jan 2006 15:04") + " WIB"
	}

	return payment.InjectVariables(payment.GetInstructions(method), payment.InstructionVars{
		"payment_code": data.PaymentCode(),
		"amount":       amount,
		"expiry":       expiry,
	})
}

func formatAmount(gateway payment.FlexString, fallback float64) string {
	if gateway != "" {
		if v, err := utils.ParseAmount(string(gateway)); err == nil {
			return utils.FormatIDR(v)
		}
	}
	return utils.FormatIDR(fallback)
}

// ----------------- Close -----------------

// Close tears down the push handle, the countdown and in-flight work.
// Must not be called from a Navigator or Presenter callback.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.gen++
	session := o.detachLocked()
	o.mu.Unlock()

	session.release()
	o.wg.Wait()
	o.log(context.Background()).Debug("Checkout session closed")
}

// ----------------- helpers -----------------

// detachLocked hands the current page resources to the caller for release
// outside the lock.
func (o *Orchestrator) detachLocked() resources {
	r := o.session
	o.session = resources{}
	return r
}

func (o *Orchestrator) setStateLocked(log *zap.Logger, s State) {
	if o.state == s {
		return
	}
	log.Info("Checkout state changed",
		zap.Stringer("from", o.state),
		zap.Stringer("to", s),
	)
	o.state = s
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Orchestrator) open(q string, d *payment.PaymentDetails) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("%w: empty envelope", envelope.ErrFormat)
	}
	if err := o.deps.Codec.Decode(q, d); err != nil {
		return err
	}
	return d.Validate()
}

func (o *Orchestrator) pageURL(path, token string) string {
	return strings.TrimRight(o.cfg.PublicBaseURL, "/") + path + "?q=" + url.QueryEscape(token)
}

func (o *Orchestrator) log(ctx context.Context) *zap.Logger {
	return logger.FromCtx(ctx).With(zap.String("session_id", o.id))
}

func (o *Orchestrator) toast(err error) {
	msg, _ := Classify(err)
	o.deps.Presenter.Toast(msg)
}

func (o *Orchestrator) post(msg ParentMessage) {
	if o.deps.Frame != nil {
		o.deps.Frame.PostParent(msg)
	}
}

func (o *Orchestrator) record(ctx context.Context, d payment.PaymentDetails, st payment.SettlementStatus, source string, raw any) {
	if o.deps.Journal == nil || d.PaymentData == nil {
		return
	}
	log := o.log(ctx)

	payload, err := json.Marshal(raw)
	if err != nil {
		log.Warn("Failed encoding settlement payload", zap.Error(err))
		payload = nil
	}
	channel, _ := d.Channel()

	e := &payment.SettlementEvent{
		PaymentID:  d.PaymentData.PaymentID,
		OrderID:    string(d.PaymentData.OrderID),
		Channel:    channel,
		Status:     st,
		Source:     source,
		Payload:    payload,
		ObservedAt: o.cfg.Now(),
	}

	id, dup, err := o.deps.Journal.SaveSettlementEvent(ctx, e)
	if err != nil {
		log.Error("Failed journaling settlement", zap.Error(err))
		return
	}
	if dup {
		log.Info("Settlement already journaled")
		return
	}
	log.Info("Settlement journaled", zap.Int64("event_id", id))
}

type nopPresenter struct{}

func (nopPresenter) Toast(string)    {}
func (nopPresenter) Countdown(int64) {}
func (nopPresenter) ExpiredBanner()  {}
func (nopPresenter) NotFound(string) {}
