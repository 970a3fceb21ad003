// Package spm sequences self-programming flash operations.
package spm

import (
	"encoding/binary"

	"github.com/bigbag/audioboot/internal/hw"
)

// Programmer issues SPM instructions through the SPMCSR interface. Each
// primitive busy-waits for the previous operation, runs with interrupts
// disabled and leaves the R1:R0 scratch pair as it found it.
type Programmer struct {
	ctrl hw.SPMController
	irq  hw.Interrupts
}

// New returns a programmer for ctrl.
func New(ctrl hw.SPMController, irq hw.Interrupts) *Programmer {
	return &Programmer{ctrl: ctrl, irq: irq}
}

// Erase erases the page containing addr.
func (p *Programmer) Erase(addr uint16) {
	p.irq.Free(func() {
		p.spm(hw.PGERS, addr)
	})
}

// Fill loads word into the temporary page buffer slot for addr.
func (p *Programmer) Fill(addr uint16, word uint16) {
	p.irq.Free(func() {
		saved := p.ctrl.Scratch()
		p.ctrl.SetScratch(word)
		p.spm(0, addr)
		p.ctrl.SetScratch(saved)
	})
}

// Write programs the page buffer into the page containing addr.
func (p *Programmer) Write(addr uint16) {
	p.irq.Free(func() {
		p.spm(hw.PGWRT, addr)
	})
}

// EnableRead re-enables the read-while-write section once the last write
// has finished.
func (p *Programmer) EnableRead() {
	p.irq.Free(func() {
		p.spm(hw.RWWSRE, 0)
	})
}

func (p *Programmer) spm(cmd uint8, addr uint16) {
	for p.ctrl.SPMCSR()&hw.SPMEN != 0 {
	}
	p.ctrl.SetSPMCSR(cmd | hw.SPMEN)
	p.ctrl.SPM(addr)
}

// CommitPage programs page at addr: erase, fill every little-endian word in
// ascending order, write, re-enable reads. It is the only sequence that
// leaves defined flash contents.
func CommitPage(f hw.Flash, addr uint16, page []byte) {
	f.Erase(addr)
	for i := 0; i+1 < len(page); i += 2 {
		f.Fill(addr+uint16(i), binary.LittleEndian.Uint16(page[i:]))
	}
	f.Write(addr)
	f.EnableRead()
}

// Guard keeps page commits out of the resident boot section.
type Guard struct {
	// Base is the first byte of the boot section.
	Base int
	// PageSize is the flash page size in bytes.
	PageSize int
}

// Allows reports whether the page at addr lies entirely below Base.
func (g Guard) Allows(addr uint16) bool {
	return int(addr)+g.PageSize <= g.Base
}
