package sim

import "sync"

// IRQ models the global interrupt flag shared by a main loop and the
// interrupt handlers delivered by Capture.
//
// Free is reentrant for the main loop, matching nested critical sections
// that save and restore SREG. It must not be called from a handler.
type IRQ struct {
	mu    sync.Mutex
	depth int // main-loop nesting, touched only by the main loop
}

// Free implements hw.Interrupts.
func (q *IRQ) Free(f func()) {
	if q.depth == 0 {
		q.mu.Lock()
		defer q.mu.Unlock()
	}
	q.depth++
	defer func() { q.depth-- }()

	f()
}

// Serve runs an interrupt handler. It blocks while the main loop has
// interrupts disabled.
func (q *IRQ) Serve(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	f()
}

// Disabled reports whether the main loop is inside Free.
func (q *IRQ) Disabled() bool {
	return q.depth > 0
}
