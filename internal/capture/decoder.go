// Package capture decodes differential Manchester audio from input-capture
// interrupts and programs flash from a main loop fed through a mailbox.
package capture

// State is the capture state machine state.
type State uint8

// Capture states
const (
	Idle State = iota
	Sync
	Wait
	Run
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sync:
		return "sync"
	case Wait:
		return "wait"
	case Run:
		return "run"
	default:
		return "unknown"
	}
}

const (
	// InitialDelay seeds the short/long interval threshold, in timer ticks.
	InitialDelay = 920
	syncEdges    = 15
)

// Decoder is the body of the capture and timeout interrupt handlers. It
// must only be called with interrupts disabled.
type Decoder struct {
	mb *Mailbox

	state State
	delay uint16
	bits  uint8
	shift uint8
	short bool
	start bool
}

// NewDecoder returns an idle decoder delivering bytes to mb.
func NewDecoder(mb *Mailbox) *Decoder {
	return &Decoder{mb: mb, delay: InitialDelay}
}

// State returns the current state.
func (d *Decoder) State() State {
	return d.state
}

// Delay returns the interval threshold separating half cells from full
// cells.
func (d *Decoder) Delay() uint16 {
	return d.delay
}

// Capture handles one edge, interval ticks after the previous one.
func (d *Decoder) Capture(interval uint16) {
	switch d.state {
	case Idle:
		d.bits = 0
		d.state = Sync
	case Sync:
		d.bits++
		if d.bits >= syncEdges {
			d.bits = 0
			d.short = false
			d.state = Wait
		}
		d.delay = (d.delay + interval*3/4) / 2
	case Wait:
		d.wait(interval)
	case Run:
		d.run(interval)
	}
}

// Timeout handles the compare match: a stalled line drops back to Idle.
func (d *Decoder) Timeout() {
	d.state = Idle
}

// wait looks for the two half-cell intervals of the start bit.
func (d *Decoder) wait(interval uint16) {
	if interval >= d.delay {
		d.short = false
		return
	}
	if !d.short {
		d.short = true
		return
	}

	d.short = false
	d.bits = 0
	d.shift = 0
	d.start = true
	d.state = Run
}

// run shifts in one bit per cell. The first half-cell interval of a 1 sets
// the low bit; the edge that ends the cell commits it.
func (d *Decoder) run(interval uint16) {
	if interval < d.delay && d.shift&1 == 0 {
		d.shift |= 1
		return
	}

	d.bits++
	if d.bits >= 8 {
		d.mb.Send(d.shift, d.start)
		d.start = false
		d.bits = 0
	}
	d.shift <<= 1
}
