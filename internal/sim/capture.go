package sim

import "sync/atomic"

// DefaultCaptureTimeout is the compare-match value, in timer ticks, that
// fires the timeout handler after the last captured edge.
const DefaultCaptureTimeout = 981 * 4

// CaptureHandler is the pair of interrupt service routines driven by an
// input-capture timer.
type CaptureHandler interface {
	// Capture receives the ticks elapsed since the previous edge.
	Capture(interval uint16)
	// Timeout runs on compare match.
	Timeout()
}

// Capture plays PCM samples through a comparator into a 16-bit input
// capture timer that restarts on every edge, delivering interrupts to a
// CaptureHandler on its own goroutine.
type Capture struct {
	samples    []byte
	sampleRate uint64
	cpuHz      uint64
	timeout    uint64
	threshold  byte
	irq        *IRQ
	pace       func()
	done       atomic.Bool
}

// NewCapture returns a driver for samples recorded at sampleRate feeding a
// timer clocked at cpuHz without prescaler. Handlers run under irq.
func NewCapture(samples []byte, sampleRate, cpuHz int, irq *IRQ) *Capture {
	return &Capture{
		samples:    samples,
		sampleRate: uint64(sampleRate),
		cpuHz:      uint64(cpuHz),
		timeout:    DefaultCaptureTimeout,
		threshold:  DefaultThreshold,
		irq:        irq,
	}
}

// SetTimeout changes the compare-match value.
func (c *Capture) SetTimeout(ticks uint16) {
	c.timeout = uint64(ticks)
}

// SetPace installs a hook called before every edge. A consumer that
// cannot keep up in logical time uses it to hold the line back.
func (c *Capture) SetPace(f func()) {
	c.pace = f
}

// Run delivers every edge and compare match to h, then marks the driver
// done. The timer wraps at 16 bits, so the compare match fires once per
// wrap of a long gap.
func (c *Capture) Run(h CaptureHandler) {
	defer c.done.Store(true)

	if len(c.samples) == 0 {
		return
	}

	level := c.samples[0] > c.threshold
	var last uint64
	for i, s := range c.samples {
		if (s > c.threshold) == level {
			continue
		}
		level = !level

		now := uint64(i) * c.cpuHz / c.sampleRate
		gap := now - last
		last = now

		for match := c.timeout; match < gap; match += 1 << 16 {
			c.irq.Serve(h.Timeout)
		}
		if c.pace != nil {
			c.pace()
		}
		c.irq.Serve(func() { h.Capture(uint16(gap)) })
	}

	// Trailing silence after the last edge.
	tail := uint64(len(c.samples))*c.cpuHz/c.sampleRate - last
	if c.timeout < tail {
		c.irq.Serve(h.Timeout)
	}
}

// Expired implements hw.Watchdog: true once Run has returned.
func (c *Capture) Expired() bool {
	return c.done.Load()
}
