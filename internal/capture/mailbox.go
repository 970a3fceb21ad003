package capture

import "sync/atomic"

const (
	slotFull  = 1 << 8
	slotStart = 1 << 9
)

// Mailbox is a single-slot, lock-free handoff from the capture interrupt to
// the main loop. Send overwrites, Take leaves the slot empty. It is not a
// queue: the reader must drain it faster than one byte per eight bit
// periods or bytes are silently lost.
type Mailbox struct {
	slot atomic.Uint32
}

// Send deposits b. start marks the first byte of a frame.
func (m *Mailbox) Send(b byte, start bool) {
	v := uint32(b) | slotFull
	if start {
		v |= slotStart
	}
	m.slot.Store(v)
}

// Take empties the slot. ok is false when it was already empty.
func (m *Mailbox) Take() (b byte, start bool, ok bool) {
	v := m.slot.Swap(0)
	return byte(v), v&slotStart != 0, v&slotFull != 0
}

// Full reports whether a byte is waiting.
func (m *Mailbox) Full() bool {
	return m.slot.Load()&slotFull != 0
}
