// Package timer implements the recording countdown that auto-stops capture.
package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultCeiling  = 60 * time.Second
	DefaultInterval = time.Second

	logEverySeconds = 10
)

// Config configures a countdown
type Config struct {
	Ceiling  time.Duration
	Interval time.Duration
	// OnTick receives the remaining whole seconds, starting with the ceiling.
	// It must not call Cancel.
	OnTick func(remaining int)
	// OnFinish is called once when the countdown reaches zero. It may call Cancel.
	OnFinish func()
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) ticker {
	return realTicker{time.NewTicker(d)}
}

// Timer counts down from a ceiling at a fixed interval
type Timer struct {
	cfg       Config
	log       zerolog.Logger
	newTicker func(time.Duration) ticker

	// cbMu is held while OnTick runs; Cancel takes it so no tick lands after it returns.
	cbMu sync.Mutex

	mu        sync.Mutex
	remaining time.Duration
	stop      chan struct{}
}

// New creates a stopped Timer. Zero durations take the defaults.
func New(cfg Config, log zerolog.Logger) *Timer {
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultCeiling
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Timer{
		cfg:       cfg,
		log:       log,
		newTicker: newRealTicker,
		remaining: cfg.Ceiling,
	}
}

// Start begins the countdown. Starting a running timer is a no-op.
func (t *Timer) Start() {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()

	t.mu.Lock()
	if t.stop != nil {
		t.mu.Unlock()
		return
	}
	t.remaining = t.cfg.Ceiling
	stop := make(chan struct{})
	t.stop = stop
	tk := t.newTicker(t.cfg.Interval)
	seconds := toSeconds(t.remaining)
	t.mu.Unlock()

	t.publish(seconds)
	go t.run(tk, stop)
}

// Cancel stops the countdown. No tick is delivered after Cancel returns, and
// OnFinish is suppressed unless the countdown already reached zero. Safe to
// call repeatedly.
func (t *Timer) Cancel() {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
}

// Remaining returns the remaining whole seconds.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return toSeconds(t.remaining)
}

func (t *Timer) run(tk ticker, stop chan struct{}) {
	defer tk.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			if !t.tick(stop) {
				return
			}
		}
	}
}

// tick advances the countdown and reports whether it should keep running.
func (t *Timer) tick(stop chan struct{}) bool {
	t.cbMu.Lock()
	t.mu.Lock()
	if t.stop != stop {
		// Cancelled, possibly restarted
		t.mu.Unlock()
		t.cbMu.Unlock()
		return false
	}

	t.remaining -= t.cfg.Interval
	if t.remaining < 0 {
		t.remaining = 0
	}
	seconds := toSeconds(t.remaining)
	finished := t.remaining == 0
	if finished {
		t.stop = nil
	}
	t.mu.Unlock()

	t.publish(seconds)
	t.cbMu.Unlock()

	if seconds > 0 && seconds%logEverySeconds == 0 {
		t.log.Info().Int("remaining", seconds).Msg("Timer: seconds remaining")
	}

	if finished {
		t.log.Info().Msg("Timer finished")
		if t.cfg.OnFinish != nil {
			t.cfg.OnFinish()
		}
		return false
	}
	return true
}

func (t *Timer) publish(seconds int) {
	if t.cfg.OnTick != nil {
		t.cfg.OnTick(seconds)
	}
}

func toSeconds(d time.Duration) int {
	return int(d / time.Second)
}
