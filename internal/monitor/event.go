// Package monitor interprets the debug UART output of the audio bootloader.
package monitor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a debug line.
type Kind int

// Debug line kinds
const (
	Unknown Kind = iota
	Start
	Frame
	BadFrame
	Refused
	Running
	Checksum
	GoodFrame
)

// String returns human-readable name for a line kind
func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Frame:
		return "frame"
	case BadFrame:
		return "bad frame"
	case Refused:
		return "refused"
	case Running:
		return "running"
	case Checksum:
		return "checksum"
	case GoodFrame:
		return "good frame"
	default:
		return "unknown"
	}
}

// Event is one parsed debug line.
type Event struct {
	Kind     Kind
	Command  byte
	Address  uint16
	Checksum uint16
	Line     string
}

func (e Event) String() string {
	switch e.Kind {
	case Frame:
		return fmt.Sprintf("frame cmd=%d addr=0x%04X crc=0x%04X", e.Command, e.Address, e.Checksum)
	case Refused:
		return fmt.Sprintf("refused addr=0x%04X", e.Address)
	case Checksum:
		return fmt.Sprintf("checksum 0x%04X", e.Checksum)
	default:
		return e.Kind.String()
	}
}

var (
	frameLine   = regexp.MustCompile(`^(\d+) 0x([0-9a-fA-F]{1,4}), 0x([0-9a-fA-F]{1,4})$`)
	refusedLine = regexp.MustCompile(`^Refused 0x([0-9a-fA-F]{1,4})$`)
	crcLine     = regexp.MustCompile(`^crc:([0-9a-fA-F]{1,4})$`)
)

// ParseLine classifies a line. Both the bootloader report format and the
// Arduino sketch format (":)", ":(", "crc:XXXX") are recognized.
func ParseLine(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	e := Event{Line: line}
	trimmed := strings.TrimSpace(line)

	switch trimmed {
	case "Start", "start", "receiving..":
		e.Kind = Start
		return e
	case "Bad frame", ":(":
		e.Kind = BadFrame
		return e
	case "Running":
		e.Kind = Running
		return e
	case ":)":
		e.Kind = GoodFrame
		return e
	}

	if m := frameLine.FindStringSubmatch(trimmed); m != nil {
		cmd, err := strconv.ParseUint(m[1], 10, 8)
		if err != nil {
			return e
		}
		e.Kind = Frame
		e.Command = byte(cmd)
		e.Address = parseHex16(m[2])
		e.Checksum = parseHex16(m[3])
		return e
	}
	if m := refusedLine.FindStringSubmatch(trimmed); m != nil {
		e.Kind = Refused
		e.Address = parseHex16(m[1])
		return e
	}
	if m := crcLine.FindStringSubmatch(trimmed); m != nil {
		e.Kind = Checksum
		e.Checksum = parseHex16(m[1])
		return e
	}
	return e
}

// parseHex16 parses at most four hex digits, already matched by a pattern.
func parseHex16(s string) uint16 {
	v, _ := strconv.ParseUint(s, 16, 16)
	return uint16(v)
}
