// Package manchester renders frames as a differential Manchester waveform of
// 8-bit unsigned PCM samples.
//
// Every bit cell is four samples. A 1 bit carries a mid-cell transition and
// keeps the running polarity; a 0 bit holds its level and flips the polarity
// at the next cell boundary. Only transitions carry information, so an
// inverted audio path decodes the same.
package manchester

import "github.com/bigbag/audioboot/internal/protocol"

// Idle is the mid-scale level of the preamble.
const Idle = 0x7F

// SamplesPerBit is the width of one bit cell.
const SamplesPerBit = 4

// MinPreamble is the shortest preamble the receiver tolerates.
const MinPreamble = 500

// Bit cell bursts keyed by (polarity, bit).
var (
	oneHigh  = [SamplesPerBit]byte{0x7f, 0xff, 0x7f, 0x00}
	oneLow   = [SamplesPerBit]byte{0x7f, 0x00, 0x7f, 0xff}
	zeroHigh = [SamplesPerBit]byte{0x7f, 0xd9, 0xff, 0xd9}
	zeroLow  = [SamplesPerBit]byte{0x7f, 0x25, 0x00, 0x25}
)

// Encoder holds the running polarity. It is not reset between frames: one
// Encoder renders a whole transfer.
type Encoder struct {
	high     bool
	preamble int
}

// New returns an encoder starting at low polarity with a preamble of
// preamble idle samples. Values below MinPreamble are raised to it.
func New(preamble int) *Encoder {
	if preamble < MinPreamble {
		preamble = MinPreamble
	}
	return &Encoder{preamble: preamble}
}

// Preamble returns the number of idle samples emitted before each frame.
func (e *Encoder) Preamble() int {
	return e.preamble
}

// EncodeByte appends the 32 samples of b, most significant bit first.
func (e *Encoder) EncodeByte(dst []byte, b byte) []byte {
	for i := 0; i < 8; i++ {
		one := b&0x80 != 0

		var cell [SamplesPerBit]byte
		switch {
		case !e.high && !one:
			cell = zeroLow
		case !e.high && one:
			cell = oneLow
		case e.high && !one:
			cell = zeroHigh
		default:
			cell = oneHigh
		}
		dst = append(dst, cell[:]...)

		if !one {
			e.high = !e.high
		}
		b <<= 1
	}
	return dst
}

// Stop flips the polarity and returns the two-sample end-of-frame marker.
func (e *Encoder) Stop() []byte {
	e.high = !e.high
	if e.high {
		return []byte{0x7f, 0x00}
	}
	return []byte{0x7f, 0xff}
}

// EncodeFrame renders the preamble, every wire byte of f and the stop marker.
func (e *Encoder) EncodeFrame(f *protocol.Frame) []byte {
	return e.EncodeWire(f.Encode())
}

// EncodeWire renders the preamble, the given serialized frame and the stop
// marker.
func (e *Encoder) EncodeWire(wire []byte) []byte {
	out := make([]byte, 0, e.preamble+len(wire)*8*SamplesPerBit+2)
	for i := 0; i < e.preamble; i++ {
		out = append(out, Idle)
	}
	for _, b := range wire {
		out = e.EncodeByte(out, b)
	}
	return append(out, e.Stop()...)
}

// FrameSamples returns the sample count of one encoded frame.
func (e *Encoder) FrameSamples(pageSize int) int {
	return e.preamble + (pageSize+protocol.Overhead)*8*SamplesPerBit + 2
}
