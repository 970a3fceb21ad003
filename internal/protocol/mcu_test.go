package protocol

import (
	"sort"
	"testing"
)

func TestLookupMCU(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		bootBase int
	}{
		{"atmega328p", 128, 0x7C00},
		{"ATmega328P", 128, 0x7C00},
		{"atmega8", 64, 0x1C00},
		{"atmega644p", 256, 0xFC00},
	}

	for _, tt := range tests {
		m, err := LookupMCU(tt.name)
		if err != nil {
			t.Fatalf("LookupMCU(%q) error = %v", tt.name, err)
		}
		if m.PageSize != tt.pageSize || m.BootBase != tt.bootBase {
			t.Errorf("LookupMCU(%q) = %+v, want page %d boot 0x%X", tt.name, m, tt.pageSize, tt.bootBase)
		}
	}
}

func TestLookupMCU_Unknown(t *testing.T) {
	if _, err := LookupMCU("pic16f84"); err == nil {
		t.Error("LookupMCU(pic16f84) error = nil, want error")
	}
}

func TestMCUs_Geometry(t *testing.T) {
	names := MCUNames()
	if !sort.StringsAreSorted(names) {
		t.Errorf("MCUNames() = %v, not sorted", names)
	}

	for _, n := range names {
		m, _ := LookupMCU(n)
		if m.BootBase%m.PageSize != 0 {
			t.Errorf("%s boot base 0x%X is not page aligned", n, m.BootBase)
		}
		if m.BootBase >= m.FlashSize || m.FlashSize > 1<<16 {
			t.Errorf("%s boot base 0x%X outside flash of 0x%X bytes", n, m.BootBase, m.FlashSize)
		}
	}
}
