package countdown

import (
	"context"
	"sync"
	"time"
)

const defaultInterval = time.Second

// Remaining is the whole number of seconds left before expiry, never
// negative.
func Remaining(expiry, now time.Time) int64 {
	d := expiry.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

type Countdown struct {
	expiry   time.Time
	now      func() time.Time
	interval time.Duration

	c      chan int64
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type Option func(*Countdown)

func WithClock(now func() time.Time) Option {
	return func(c *Countdown) { c.now = now }
}

func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Start emits the remaining seconds immediately and then on every tick
// until stopped. A slow reader only ever sees the latest value.
func Start(ctx context.Context, expiry time.Time, opts ...Option) *Countdown {
	c := &Countdown{
		expiry:   expiry,
		now:      time.Now,
		interval: defaultInterval,
		c:        make(chan int64, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	go c.loop(ctx)
	return c
}

func (c *Countdown) C() <-chan int64 { return c.c }

// Expiry is the instant the countdown runs towards.
func (c *Countdown) Expiry() time.Time { return c.expiry }

// Remaining evaluates against the countdown's clock, independent of ticks.
func (c *Countdown) Remaining() int64 { return Remaining(c.expiry, c.now()) }

// Stop is idempotent and waits for the ticker goroutine to exit.
func (c *Countdown) Stop() {
	c.once.Do(c.cancel)
	<-c.done
}

func (c *Countdown) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// A clock going backwards must not make the value climb again.
	last := int64(-1)
	emit := func() {
		v := c.Remaining()
		if last >= 0 && v > last {
			v = last
		}
		last = v
		c.publish(v)
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}

func (c *Countdown) publish(v int64) {
	select {
	case c.c <- v:
		return
	default:
	}
	// drop the stale value
	select {
	case <-c.c:
	default:
	}
	select {
	case c.c <- v:
	default:
	}
}
