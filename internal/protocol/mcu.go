package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// MCU describes the flash geometry of a supported part.
type MCU struct {
	Name      string
	PageSize  int
	FlashSize int
	BootBase  int // first byte of a 1 KiB boot section
}

var mcus = map[string]MCU{
	"atmega8":    {Name: "atmega8", PageSize: 64, FlashSize: 0x2000, BootBase: 0x1C00},
	"atmega88":   {Name: "atmega88", PageSize: 64, FlashSize: 0x2000, BootBase: 0x1C00},
	"atmega16":   {Name: "atmega16", PageSize: 128, FlashSize: 0x4000, BootBase: 0x3C00},
	"atmega168":  {Name: "atmega168", PageSize: 128, FlashSize: 0x4000, BootBase: 0x3C00},
	"atmega32":   {Name: "atmega32", PageSize: 128, FlashSize: 0x8000, BootBase: 0x7C00},
	"atmega328p": {Name: "atmega328p", PageSize: DefaultPageSize, FlashSize: 0x8000, BootBase: BootloaderAddress},
	"atmega644p": {Name: "atmega644p", PageSize: 256, FlashSize: 0x10000, BootBase: 0xFC00},
}

// DefaultMCU is the part assumed when none is named.
const DefaultMCU = "atmega328p"

// LookupMCU returns the geometry of the named part, case-insensitively.
func LookupMCU(name string) (MCU, error) {
	m, ok := mcus[strings.ToLower(name)]
	if !ok {
		return MCU{}, fmt.Errorf("unknown mcu %q (known: %s)", name, strings.Join(MCUNames(), ", "))
	}
	return m, nil
}

// MCUNames returns the supported part names, sorted.
func MCUNames() []string {
	names := make([]string, 0, len(mcus))
	for n := range mcus {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
