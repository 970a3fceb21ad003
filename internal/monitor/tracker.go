package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bigbag/audioboot/internal/protocol"
)

// Tracker checks reported frames against the transfer that was sent.
type Tracker struct {
	expected map[uint16]uint16 // address -> checksum of program frames
	seen     map[uint16]bool
	refused  map[uint16]bool // pages the guard kept out of the boot section
	good     int
	bad      int
	unknown  int
	started  bool
	running  bool
}

// NewTracker returns a tracker for frames. Without frames it only counts.
func NewTracker(frames []*protocol.Frame) *Tracker {
	t := &Tracker{
		expected: make(map[uint16]uint16),
		seen:     make(map[uint16]bool),
		refused:  make(map[uint16]bool),
	}
	for _, f := range frames {
		if !f.IsRun() {
			t.expected[f.Address] = f.Checksum()
		}
	}
	return t
}

// Observe records an event.
func (t *Tracker) Observe(e Event) {
	switch e.Kind {
	case Start:
		t.started = true
	case GoodFrame:
		t.good++
	case Frame:
		t.good++
		if e.Command == protocol.CmdRun {
			return
		}
		if want, ok := t.expected[e.Address]; ok && want != e.Checksum {
			t.unknown++
			return
		}
		t.seen[e.Address] = true
	case BadFrame:
		t.bad++
	case Refused:
		delete(t.seen, e.Address)
		t.refused[e.Address] = true
	case Running:
		t.running = true
	}
}

// Missing returns the addresses of expected frames neither reported nor
// refused, in ascending order.
func (t *Tracker) Missing() []uint16 {
	var missing []uint16
	for addr := range t.expected {
		if !t.seen[addr] && !t.refused[addr] {
			missing = append(missing, addr)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// Done reports whether the target launched the application.
func (t *Tracker) Done() bool {
	return t.running
}

// Refused returns the addresses the target refused to program, in
// ascending order.
func (t *Tracker) Refused() []uint16 {
	return sortedKeys(t.refused)
}

// Complete reports whether every expected page arrived or was refused, and
// the application was launched.
func (t *Tracker) Complete() bool {
	return t.running && len(t.Missing()) == 0
}

// Summary describes the transfer so far.
func (t *Tracker) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d good frames, %d bad", t.good, t.bad)
	if len(t.refused) > 0 {
		fmt.Fprintf(&b, ", %d refused", len(t.refused))
	}
	if t.unknown > 0 {
		fmt.Fprintf(&b, ", %d not from this image", t.unknown)
	}
	if missing := t.Missing(); len(missing) > 0 {
		addrs := make([]string, len(missing))
		for i, a := range missing {
			addrs[i] = fmt.Sprintf("0x%04X", a)
		}
		fmt.Fprintf(&b, ", missing %s", strings.Join(addrs, " "))
	}
	if t.running {
		b.WriteString(", application started")
	}
	return b.String()
}

func sortedKeys(m map[uint16]bool) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
