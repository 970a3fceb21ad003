package link

import (
	"encoding/binary"

	"github.com/bigbag/audioboot/internal/protocol"
)

// Frame is a received frame in wire order: command, address (LE), page,
// checksum (LE). The sentinel is not included.
type Frame []byte

// Command returns the frame command.
func (f Frame) Command() byte {
	return f[0]
}

// Address returns the page byte address.
func (f Frame) Address() uint16 {
	return binary.LittleEndian.Uint16(f[1:protocol.HeaderSize])
}

// Page returns the page payload.
func (f Frame) Page() []byte {
	return f[protocol.HeaderSize : len(f)-protocol.ChecksumSize]
}

// Checksum returns the transmitted checksum.
func (f Frame) Checksum() uint16 {
	return binary.LittleEndian.Uint16(f[len(f)-protocol.ChecksumSize:])
}

// IsRun reports whether the frame ends the transfer.
func (f Frame) IsRun() bool {
	return f.Command() == protocol.CmdRun
}

func (f Frame) pageSize() int {
	return len(f) - protocol.HeaderSize - protocol.ChecksumSize
}
