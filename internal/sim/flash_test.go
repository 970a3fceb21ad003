package sim

import (
	"bytes"
	"testing"

	"github.com/bigbag/audioboot/internal/hw"
)

func spm(f *Flash, cmd uint8, addr uint16) {
	for f.SPMCSR()&hw.SPMEN != 0 {
	}
	f.SetSPMCSR(cmd | hw.SPMEN)
	f.SPM(addr)
}

func TestFlash_StartsErased(t *testing.T) {
	f := NewFlash(256, 64)
	if !bytes.Equal(f.Bytes(), bytes.Repeat([]byte{0xff}, 256)) {
		t.Error("new flash is not erased")
	}
}

func TestFlash_FillWrite(t *testing.T) {
	f := NewFlash(256, 64)

	spm(f, hw.PGERS, 64)
	f.SetScratch(0xbeef)
	spm(f, 0, 64+10)
	spm(f, hw.PGWRT, 64)
	spm(f, hw.RWWSRE, 0)

	if got := f.Read(64+10, 2); !bytes.Equal(got, []byte{0xef, 0xbe}) {
		t.Errorf("word at 74 = % X, want EF BE", got)
	}
	if got := f.Read(64, 10); !bytes.Equal(got, bytes.Repeat([]byte{0xff}, 10)) {
		t.Errorf("unfilled words = % X, want FF", got)
	}
	if f.ReadWhileWriteBusy() {
		t.Error("ReadWhileWriteBusy() = true after RWWSRE")
	}
	if v := f.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
}

func TestFlash_WriteWithoutEraseOnlyClearsBits(t *testing.T) {
	f := NewFlash(128, 64)
	f.Load(0, []byte{0x0f, 0xf0})

	f.SetScratch(0x3333)
	spm(f, 0, 0)
	spm(f, hw.PGWRT, 0)

	if got := f.Read(0, 2); !bytes.Equal(got, []byte{0x03, 0x30}) {
		t.Errorf("unerased write = % X, want 03 30", got)
	}
}

func TestFlash_BusyStatus(t *testing.T) {
	f := NewFlash(128, 64, WithBusyReads(2))
	spm(f, hw.PGERS, 0)

	for i := 0; i < 2; i++ {
		if f.SPMCSR()&hw.SPMEN == 0 {
			t.Fatalf("SPMCSR() read %d not busy", i)
		}
	}
	csr := f.SPMCSR()
	if csr&hw.SPMEN != 0 {
		t.Error("SPMEN still set after busy reads")
	}
	if csr&hw.RWWSB == 0 {
		t.Error("RWWSB clear before RWWSRE")
	}
}

func TestFlash_Violations(t *testing.T) {
	irq := &IRQ{}
	f := NewFlash(128, 64, WithInterruptCheck(irq))

	f.SPM(0)
	if len(f.Violations()) != 2 {
		t.Fatalf("Violations() = %v, want interrupts and SPMEN", f.Violations())
	}

	irq.Free(func() {
		f.SetSPMCSR(hw.PGERS | hw.SPMEN)
		f.SPM(0)
		f.SetSPMCSR(hw.PGWRT | hw.SPMEN)
	})
	if len(f.Violations()) != 3 {
		t.Errorf("Violations() = %v, want write while busy", f.Violations())
	}
}

func TestFlash_Ops(t *testing.T) {
	f := NewFlash(128, 64)
	spm(f, hw.PGERS, 0)
	f.SetScratch(0x1234)
	spm(f, 0, 2)

	want := []Op{{Command: hw.PGERS, Addr: 0}, {Command: 0, Addr: 2, Word: 0x1234}}
	got := f.Ops()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Ops() = %+v, want %+v", got, want)
	}
}
