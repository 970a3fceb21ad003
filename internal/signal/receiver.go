// Package signal recovers the bit clock from comparator edge timing and
// decodes differential Manchester bytes by polling.
package signal

import (
	"errors"

	"github.com/bigbag/audioboot/internal/hw"
)

// Prescale is the timer prescaler selected at construction.
const Prescale = 8

const (
	settleEdges = 8
	syncEdges   = 16
)

// ErrStalled is returned when the watchdog expires during a wait.
var ErrStalled = errors.New("signal: stalled waiting for comparator edge")

// Receiver decodes bytes from a comparator input.
type Receiver struct {
	cmp   hw.Comparator
	timer hw.Timer
	wd    hw.Watchdog
	delay uint16
}

// Option configures a Receiver.
type Option func(*Receiver)

// WithWatchdog bounds every spin loop by w.
func WithWatchdog(w hw.Watchdog) Option {
	return func(r *Receiver) {
		r.wd = w
	}
}

// New returns a receiver reading cmp and timing with timer.
func New(cmp hw.Comparator, timer hw.Timer, opts ...Option) *Receiver {
	r := &Receiver{
		cmp:   cmp,
		timer: timer,
		wd:    hw.Never,
	}
	for _, opt := range opts {
		opt(r)
	}
	timer.Configure(Prescale)
	return r
}

// Delay returns the calibrated sampling delay in timer ticks.
func (r *Receiver) Delay() uint16 {
	return r.delay
}

// Sync calibrates the sampling delay on the preamble and returns once the
// start bit has been seen. The next Get returns the first byte after it.
func (r *Receiver) Sync() error {
	var total uint16
	level := r.cmp.Level()

	for i := 0; i < syncEdges; i++ {
		r.timer.Reset()
		if err := r.waitEdge(level); err != nil {
			return err
		}
		level = !level

		if i >= settleEdges {
			total += r.timer.Read()
		}
	}

	r.delay = total * 3 / 4 / (syncEdges - settleEdges)

	for {
		if err := r.waitEdge(level); err != nil {
			return err
		}
		level = !level
		if err := r.waitDelay(); err != nil {
			return err
		}
		if r.cmp.Level() != level {
			return nil
		}
	}
}

// Get decodes one byte, most significant bit first. A transition inside
// the sampling window is a 1, a steady level a 0.
func (r *Receiver) Get() (byte, error) {
	var b byte
	level := r.cmp.Level()

	for i := 0; i < 8; i++ {
		if err := r.waitEdge(level); err != nil {
			return 0, err
		}
		level = !level

		if err := r.waitDelay(); err != nil {
			return 0, err
		}
		now := r.cmp.Level()

		b <<= 1
		if now != level {
			b |= 1
		}
		level = now
	}
	return b, nil
}

// waitEdge spins until the comparator leaves level.
func (r *Receiver) waitEdge(level bool) error {
	for r.cmp.Level() == level {
		if r.wd.Expired() {
			return ErrStalled
		}
	}
	return nil
}

// waitDelay restarts the timer and spins for the calibrated delay.
func (r *Receiver) waitDelay() error {
	r.timer.Reset()
	for r.timer.Read() < r.delay {
		if r.wd.Expired() {
			return ErrStalled
		}
	}
	return nil
}
