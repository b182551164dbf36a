package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrInvalidURL = errors.New("invalid websocket url")

const (
	defaultBackoff = 3 * time.Second
	eventBuffer    = 16
	closeTimeout   = time.Second
)

type State int32

const (
	Connecting State = iota
	Open
	Reconnecting
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Event is one push frame from the settlement channel.
type Event struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

// Dialer is satisfied by *websocket.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Notifier owns the reconnect policy shared by every handle it opens.
type Notifier struct {
	backoff    time.Duration
	dialer     Dialer
	suppressed atomic.Bool
}

type Option func(*Notifier)

func WithBackoff(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.backoff = d
		}
	}
}

func WithDialer(d Dialer) Option {
	return func(n *Notifier) { n.dialer = d }
}

func New(opts ...Option) *Notifier {
	n := &Notifier{
		backoff: defaultBackoff,
		dialer:  websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SuppressReconnect makes the next drop final. Used while a cancel request
// is in flight so the server-side close is not fought.
func (n *Notifier) SuppressReconnect() { n.suppressed.Store(true) }

func (n *Notifier) AllowReconnect() { n.suppressed.Store(false) }

func (n *Notifier) ReconnectSuppressed() bool { return n.suppressed.Load() }

// Connect validates the url and starts dialing in the background. The
// returned handle is usable immediately, in state Connecting.
func (n *Notifier) Connect(ctx context.Context, rawURL string) (*Handle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		n:        n,
		url:      u.String(),
		ctx:      hctx,
		cancel:   cancel,
		events:   make(chan Event, eventBuffer),
		opened:   make(chan struct{}),
		reopened: make(chan struct{}, 1),
		done:     make(chan struct{}),
		log:      logger.FromCtx(ctx).With(zap.String("ws_url", u.Host+u.Path)),
	}
	h.state.Store(int32(Connecting))

	go h.run()
	return h, nil
}

// Handle is one logical push subscription. It redials on transient drops
// until closed by its owner or a drop happens while reconnect is suppressed.
type Handle struct {
	n   *Notifier
	url string
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state    atomic.Int32
	events   chan Event
	opened   chan struct{}
	openOnce sync.Once
	reopened chan struct{}
	done     chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	closeOnce sync.Once

	reconnects metrics.Counter
}

// Events is closed when the handle reaches Closed.
func (h *Handle) Events() <-chan Event { return h.events }

// Opened is closed on the first successful connection.
func (h *Handle) Opened() <-chan struct{} { return h.opened }

// Reopened receives after every successful dial that follows a drop or a
// failed attempt. Signals are coalesced while nobody is reading.
func (h *Handle) Reopened() <-chan struct{} { return h.reopened }

// Done is closed once the background loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) State() State { return State(h.state.Load()) }

// Reconnects counts redials after the first attempt.
func (h *Handle) Reconnects() uint64 { return h.reconnects.Load() }

// Close stops the loop and closes the socket. Safe to call more than once.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.cancel()

		h.mu.Lock()
		if h.conn != nil {
			_ = h.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeTimeout))
			_ = h.conn.Close()
		}
		h.mu.Unlock()
	})
	<-h.done
}

func (h *Handle) setState(s State) {
	prev := State(h.state.Swap(int32(s)))
	if prev != s {
		h.log.Debug("Notifier state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", s),
		)
	}
}

func (h *Handle) run() {
	defer close(h.done)
	defer close(h.events)

	for {
		conn, _, err := h.n.dialer.DialContext(h.ctx, h.url, nil)
		if err != nil {
			if h.ctx.Err() == nil {
				h.log.Warn("Push channel dial failed", zap.Error(err))
			}
		} else if h.attach(conn) {
			h.setState(Open)
			h.openOnce.Do(func() { close(h.opened) })
			h.log.Info("Push channel open", zap.Uint64("reconnects", h.reconnects.Load()))
			if h.reconnects.Load() > 0 {
				select {
				case h.reopened <- struct{}{}:
				default:
				}
			}

			h.read(conn)
			h.detach(conn)
		}

		if h.ctx.Err() != nil || h.n.ReconnectSuppressed() {
			h.setState(Closed)
			h.log.Info("Push channel closed")
			return
		}

		h.setState(Reconnecting)
		select {
		case <-h.ctx.Done():
			h.setState(Closed)
			return
		case <-time.After(h.n.backoff):
		}
		h.reconnects.Inc()
		h.setState(Connecting)
	}
}

func (h *Handle) attach(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		_ = conn.Close()
		return false
	}
	h.conn = conn
	return true
}

func (h *Handle) detach(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Handle) read(conn *websocket.Conn) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if h.ctx.Err() == nil {
				h.log.Warn("Push channel dropped", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			h.log.Warn("Dropping malformed push frame",
				zap.Error(err),
				zap.ByteString("frame", data),
			)
			continue
		}

		select {
		case h.events <- ev:
		case <-h.ctx.Done():
			return
		}
	}
}
