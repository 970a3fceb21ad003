// Package hw defines the narrow hardware capabilities the target-side
// receiver and programmer are written against. Production builds bind them
// to memory-mapped registers; tests and the simulator bind them to the
// software models in internal/sim.
package hw

// Timer is a free-running counter used to time comparator edges.
type Timer interface {
	// Configure selects the clock prescaler (1, 8, 64, ...).
	Configure(prescale uint16)
	// Reset sets the counter to zero.
	Reset()
	// Read returns the ticks elapsed since the last Reset.
	Read() uint16
}

// Comparator reports the analog comparator output.
type Comparator interface {
	Level() bool
}

// Watchdog reports whether a blocking wait should be abandoned.
// Hardware bindings never expire; the watchdog peripheral resets the chip
// instead of returning control.
type Watchdog interface {
	Expired() bool
}

// Flash is the page programming capability.
//
// A page commit is exactly Erase(addr), Fill(addr+i, word) for every word
// of the page in ascending order, Write(addr), EnableRead(). Any other order
// leaves the page contents undefined. The ordering is the caller's
// responsibility.
type Flash interface {
	Erase(addr uint16)
	Fill(addr uint16, word uint16)
	Write(addr uint16)
	EnableRead()
}

// Interrupts models the global interrupt flag.
type Interrupts interface {
	// Free runs f with interrupts disabled.
	Free(f func())
}

// Launcher starts the application image at address 0. On hardware it
// restores the interrupt vector table and jumps, so it never returns.
type Launcher interface {
	Launch()
}

// SPMController is the register-level self-programming interface: the
// SPMCSR control/status register, the SPM trigger instruction and the R1:R0
// register pair the instruction reads its data word from.
type SPMController interface {
	SPMCSR() uint8
	SetSPMCSR(v uint8)
	// SPM issues the trigger instruction with Z = addr.
	SPM(addr uint16)
	// Scratch returns R1:R0 (R1 high byte).
	Scratch() uint16
	SetScratch(w uint16)
}

// SPMCSR bits (ATmega48/88/168/328 layout).
const (
	SPMEN  = 1 << 0
	PGERS  = 1 << 1
	PGWRT  = 1 << 2
	BLBSET = 1 << 3
	RWWSRE = 1 << 4
	SIGRD  = 1 << 5
	RWWSB  = 1 << 6
	SPMIE  = 1 << 7
)

// Never is a Watchdog that never expires.
var Never Watchdog = never{}

type never struct{}

func (never) Expired() bool { return false }
