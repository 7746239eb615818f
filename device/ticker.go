package device

import (
	"sync"
	"time"
)

// Ticker drives a periodic interrupt source. It invokes its callback from a
// dedicated goroutine, so the callback must only perform operations that are
// safe to call concurrently with the kernel (such as raising an IRQ line).
type Ticker struct {
	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	fn     func()
}

// NewTicker returns a stopped ticker that invokes fn on every tick.
func NewTicker(fn func()) *Ticker {
	return &Ticker{fn: fn}
}

// Start begins ticking every period. Starting a running ticker only changes
// its period.
func (t *Ticker) Start(period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Reset(period)
		return
	}

	t.ticker = time.NewTicker(period)
	t.stop = make(chan struct{})
	go t.run(t.ticker.C, t.stop)
}

// SetPeriod changes the period of a running ticker. It has no effect on a
// stopped ticker.
func (t *Ticker) SetPeriod(period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Reset(period)
	}
}

// Running returns true if the ticker has been started.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.ticker != nil
}

// Stop halts the ticker.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker == nil {
		return
	}

	t.ticker.Stop()
	close(t.stop)
	t.ticker, t.stop = nil, nil
}

func (t *Ticker) run(tick <-chan time.Time, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-tick:
			t.fn()
		}
	}
}

// PeriodFor returns the tick period for the supplied frequency in Hz.
func PeriodFor(hz uint32) time.Duration {
	if hz == 0 {
		hz = 1
	}

	return time.Second / time.Duration(hz)
}
