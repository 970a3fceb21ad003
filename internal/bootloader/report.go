package bootloader

import (
	"fmt"
	"io"
)

// Report writes the debug UART lines of the bootloader. A nil Report, or
// one built on a nil writer, discards everything.
type Report struct {
	w io.Writer
}

// NewReport returns a report writing to w.
func NewReport(w io.Writer) *Report {
	return &Report{w: w}
}

// Start announces the receiver is listening.
func (r *Report) Start() {
	r.printf("Start\r\n")
}

// Frame reports a frame that passed its checksum.
func (r *Report) Frame(cmd byte, addr, checksum uint16) {
	r.printf("%d 0x%04x, 0x%04x\r\n", cmd, addr, checksum)
}

// BadFrame reports a checksum failure.
func (r *Report) BadFrame() {
	r.printf("Bad frame\r\n")
}

// Refused reports a page that would overwrite the boot section.
func (r *Report) Refused(addr uint16) {
	r.printf("Refused 0x%04x\r\n", addr)
}

// Running announces the jump to the application.
func (r *Report) Running() {
	r.printf("Running\r\n")
}

func (r *Report) printf(format string, args ...any) {
	if r == nil || r.w == nil {
		return
	}
	fmt.Fprintf(r.w, format, args...)
}
