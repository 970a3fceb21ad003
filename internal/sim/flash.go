package sim

import (
	"fmt"

	"github.com/bigbag/audioboot/internal/hw"
)

// DefaultBusyReads is how many SPMCSR reads report SPMEN after an erase or
// page write.
const DefaultBusyReads = 3

// Op is one executed SPM instruction.
type Op struct {
	Command uint8 // SPMCSR command bits, SPMEN excluded
	Addr    uint16
	Word    uint16 // R1:R0 at the time of a page buffer fill
}

// Flash models an AVR application flash section behind the SPMCSR
// interface: a temporary page buffer, page erase, page write with NOR
// semantics (bits only clear) and the read-while-write busy flag.
// Protocol misuse is recorded in Violations instead of panicking.
type Flash struct {
	pageSize  int
	mem       []byte
	buf       []byte
	csr       uint8
	scratch   uint16
	busy      int
	busyReads int
	rwwBusy   bool
	irq       *IRQ

	ops        []Op
	violations []error
}

// FlashOption configures a Flash.
type FlashOption func(*Flash)

// WithBusyReads sets how long erase and write stay busy.
func WithBusyReads(n int) FlashOption {
	return func(f *Flash) {
		f.busyReads = n
	}
}

// WithInterruptCheck records a violation for any SPM issued while irq is
// enabled.
func WithInterruptCheck(irq *IRQ) FlashOption {
	return func(f *Flash) {
		f.irq = irq
	}
}

// NewFlash returns an erased flash of size bytes split into pageSize pages.
func NewFlash(size, pageSize int, opts ...FlashOption) *Flash {
	f := &Flash{
		pageSize:  pageSize,
		mem:       make([]byte, size),
		buf:       make([]byte, pageSize),
		busyReads: DefaultBusyReads,
	}
	for _, opt := range opts {
		opt(f)
	}
	fill(f.mem, 0xff)
	fill(f.buf, 0xff)
	return f
}

// SPMCSR implements hw.SPMController.
func (f *Flash) SPMCSR() uint8 {
	v := f.csr
	if f.busy > 0 {
		f.busy--
		v |= hw.SPMEN
	}
	if f.rwwBusy {
		v |= hw.RWWSB
	}
	return v
}

// SetSPMCSR implements hw.SPMController.
func (f *Flash) SetSPMCSR(v uint8) {
	if f.busy > 0 {
		f.violate("SPMCSR written while busy (0x%02X)", v)
	}
	f.csr = v &^ hw.RWWSB
}

// Scratch implements hw.SPMController.
func (f *Flash) Scratch() uint16 {
	return f.scratch
}

// SetScratch implements hw.SPMController.
func (f *Flash) SetScratch(w uint16) {
	f.scratch = w
}

// SPM implements hw.SPMController.
func (f *Flash) SPM(addr uint16) {
	if f.irq != nil && !f.irq.Disabled() {
		f.violate("SPM at 0x%04X with interrupts enabled", addr)
	}
	if f.csr&hw.SPMEN == 0 {
		f.violate("SPM at 0x%04X without SPMEN", addr)
		return
	}

	cmd := f.csr &^ (hw.SPMEN | hw.SPMIE)
	f.csr &^= hw.SPMEN | hw.PGERS | hw.PGWRT | hw.BLBSET | hw.RWWSRE | hw.SIGRD
	f.ops = append(f.ops, Op{Command: cmd, Addr: addr, Word: f.scratch})

	switch cmd {
	case 0:
		off := int(addr) % f.pageSize &^ 1
		f.buf[off] = byte(f.scratch)
		f.buf[off+1] = byte(f.scratch >> 8)
	case hw.PGERS:
		if page, ok := f.page(addr); ok {
			fill(page, 0xff)
			f.start()
		}
	case hw.PGWRT:
		if page, ok := f.page(addr); ok {
			for i := range page {
				page[i] &= f.buf[i]
			}
			fill(f.buf, 0xff)
			f.start()
		}
	case hw.RWWSRE:
		f.rwwBusy = false
	default:
		f.violate("unsupported SPM command 0x%02X", cmd)
	}
}

// Bytes returns the flash contents.
func (f *Flash) Bytes() []byte {
	return f.mem
}

// Read returns n bytes at addr.
func (f *Flash) Read(addr, n int) []byte {
	return f.mem[addr : addr+n]
}

// Load writes data at addr directly, bypassing SPM.
func (f *Flash) Load(addr int, data []byte) {
	copy(f.mem[addr:], data)
}

// Ops returns every SPM instruction executed so far.
func (f *Flash) Ops() []Op {
	return f.ops
}

// Violations returns the recorded protocol errors.
func (f *Flash) Violations() []error {
	return f.violations
}

// ReadWhileWriteBusy reports whether the application section is still
// locked by an erase or write.
func (f *Flash) ReadWhileWriteBusy() bool {
	return f.rwwBusy
}

func (f *Flash) page(addr uint16) ([]byte, bool) {
	base := int(addr) &^ (f.pageSize - 1)
	if base+f.pageSize > len(f.mem) {
		f.violate("page 0x%04X outside flash", addr)
		return nil, false
	}
	return f.mem[base : base+f.pageSize], true
}

func (f *Flash) start() {
	f.busy = f.busyReads
	f.rwwBusy = true
}

func (f *Flash) violate(format string, args ...any) {
	f.violations = append(f.violations, fmt.Errorf(format, args...))
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
