// Package sim provides software bindings for the hw capabilities: a
// comparator and timer fed from PCM samples, a self-programming flash model,
// an interrupt flag and an edge-capture driver for the interrupt-driven
// receiver.
package sim

// DefaultThreshold is the comparator reference for 8-bit unsigned audio:
// samples above it read high.
const DefaultThreshold = 0x7F

// Line plays PCM samples into a simulated comparator and timer sharing one
// clock. Every Level or Read call costs one timer tick, the way a spin loop
// on real hardware burns cycles between polls.
type Line struct {
	samples    []byte
	sampleRate uint64
	cpuHz      uint64
	prescale   uint64
	threshold  byte

	now     uint64 // timer ticks since start
	resetAt uint64
}

// NewLine returns a line playing samples recorded at sampleRate into a
// target clocked at cpuHz. The timer prescaler defaults to 1 until the
// receiver configures it.
func NewLine(samples []byte, sampleRate, cpuHz int) *Line {
	return &Line{
		samples:    samples,
		sampleRate: uint64(sampleRate),
		cpuHz:      uint64(cpuHz),
		prescale:   1,
		threshold:  DefaultThreshold,
	}
}

// SetThreshold changes the comparator reference level.
func (l *Line) SetThreshold(t byte) {
	l.threshold = t
}

// Configure implements hw.Timer.
func (l *Line) Configure(prescale uint16) {
	if prescale == 0 {
		prescale = 1
	}
	// Keep the playback position when the tick length changes.
	pos := l.now * l.prescale
	l.prescale = uint64(prescale)
	l.now = pos / l.prescale
	l.resetAt = l.now
}

// Reset implements hw.Timer.
func (l *Line) Reset() {
	l.resetAt = l.now
}

// Read implements hw.Timer.
func (l *Line) Read() uint16 {
	v := l.now - l.resetAt
	l.now++
	return uint16(v)
}

// Level implements hw.Comparator.
func (l *Line) Level() bool {
	i := l.index()
	l.now++
	if i >= uint64(len(l.samples)) {
		return false
	}
	return l.samples[i] > l.threshold
}

// Expired implements hw.Watchdog: true once every sample has been played.
func (l *Line) Expired() bool {
	return l.index() >= uint64(len(l.samples))
}

// Position returns the index of the sample currently on the line.
func (l *Line) Position() int {
	return int(l.index())
}

// Len returns the number of samples.
func (l *Line) Len() int {
	return len(l.samples)
}

func (l *Line) index() uint64 {
	return l.now * l.prescale * l.sampleRate / l.cpuHz
}
