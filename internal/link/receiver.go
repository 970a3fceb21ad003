// Package link assembles frames from a byte source and validates their
// checksum as the bytes arrive, with no look-ahead and no second pass.
package link

import (
	"errors"

	"github.com/bigbag/audioboot/internal/crc"
	"github.com/bigbag/audioboot/internal/protocol"
)

// ErrBadFrame is returned when a received frame fails its checksum.
// Calling Receive again resynchronizes on the next frame.
var ErrBadFrame = errors.New("link: frame checksum mismatch")

// ByteSource delivers decoded bytes in arrival order.
type ByteSource interface {
	// Sync waits for a frame preamble and start bit.
	Sync() error
	// Get returns the next byte of the frame.
	Get() (byte, error)
}

// Receiver owns a single frame buffer sized at construction.
type Receiver struct {
	src ByteSource
	buf Frame
}

// NewReceiver returns a receiver for frames carrying pageSize-byte pages.
func NewReceiver(src ByteSource, pageSize int) *Receiver {
	return &Receiver{
		src: src,
		buf: make(Frame, protocol.FrameSize(pageSize)),
	}
}

// PageSize returns the page size the receiver was built for.
func (r *Receiver) PageSize() int {
	return r.buf.pageSize()
}

// Receive syncs on the next frame and reads it into the buffer. The
// returned Frame aliases the buffer and is valid until the next call.
func (r *Receiver) Receive() (Frame, error) {
	var sum crc.Lag

	if err := r.src.Sync(); err != nil {
		return nil, err
	}

	for i := range r.buf {
		b, err := r.src.Get()
		if err != nil {
			return nil, err
		}
		r.buf[i] = b
		sum.Update(b)
	}

	if r.buf.Checksum() != sum.Body() {
		return nil, ErrBadFrame
	}
	return r.buf, nil
}
