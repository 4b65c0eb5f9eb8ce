package clock

import (
	"sync"
	"time"

	"github.com/adwski/fourseat/backend/model"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultGrace    = 5 * time.Second
	DefaultTimeBank = 60 * time.Second
)

// DefaultTimers is the clock template used when none is configured.
func DefaultTimers() model.Timers {
	return model.Timers{Grace: DefaultGrace, Remaining: DefaultTimeBank}
}

// Countdown is the time bank of a single seat. Each turn the first Grace of
// elapsed time is free; only the excess is taken from Remaining.
type Countdown struct {
	clock clockwork.Clock
	mx    *sync.Mutex

	grace     time.Duration
	remaining time.Duration
	started   time.Time
	running   bool
}

func NewCountdown(clock clockwork.Clock, t model.Timers) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if t.Grace < 0 {
		t.Grace = 0
	}
	if t.Remaining < 0 {
		t.Remaining = 0
	}
	return &Countdown{
		clock:     clock,
		mx:        &sync.Mutex{},
		grace:     t.Grace,
		remaining: t.Remaining,
	}
}

// Start records the turn start and returns a one-shot timer firing after
// remaining+grace. A second Start without Stop overwrites the start instant.
// The caller owns the timer and must stop it.
func (c *Countdown) Start() clockwork.Timer {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.started = c.clock.Now()
	c.running = true
	return c.clock.NewTimer(c.remaining + c.grace)
}

// Stop charges the time spent since Start, minus grace, to the time bank.
// It is a no-op when no turn is pending.
func (c *Countdown) Stop() {
	c.mx.Lock()
	defer c.mx.Unlock()
	if !c.running {
		return
	}
	c.running = false

	spent := c.clock.Since(c.started) - c.grace
	if spent <= 0 {
		return
	}
	if spent >= c.remaining {
		c.remaining = 0
		return
	}
	c.remaining -= spent
}

// Timers returns the current reading without side effects.
func (c *Countdown) Timers() model.Timers {
	c.mx.Lock()
	defer c.mx.Unlock()
	return model.Timers{Grace: c.grace, Remaining: c.remaining}
}

// pending reports whether a turn was started and not stopped yet.
func (c *Countdown) pending() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.running
}
