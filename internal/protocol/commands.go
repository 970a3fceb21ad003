package protocol

import "fmt"

// Frame commands
const (
	CmdProgram = 0x02
	CmdRun     = 0x03
)

// Sentinel precedes every frame on the wire. The receiver's start-bit search
// consumes it, so it is never part of the checksum.
var Sentinel = [4]byte{0x00, 0x00, 0x00, 0x01}

// Frame layout sizes
const (
	SentinelSize = len(Sentinel)
	HeaderSize   = 3 // command + address
	ChecksumSize = 2
	Overhead     = SentinelSize + HeaderSize + ChecksumSize
)

// PadByte fills the tail of a short data frame (erased flash state).
const PadByte = 0xFF

// FrameSize returns the number of bytes the target receives for one frame:
// header, page and checksum. The sentinel is not counted.
func FrameSize(pageSize int) int {
	return HeaderSize + pageSize + ChecksumSize
}

// CommandName returns human-readable name for a frame command
func CommandName(cmd byte) string {
	switch cmd {
	case CmdProgram:
		return "program"
	case CmdRun:
		return "run"
	default:
		return fmt.Sprintf("unknown(0x%02X)", cmd)
	}
}
