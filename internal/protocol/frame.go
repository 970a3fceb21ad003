package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bigbag/audioboot/internal/crc"
)

// ErrBadSentinel is returned by Decode when the frame does not start with
// the 00 00 00 01 sentinel.
var ErrBadSentinel = errors.New("missing frame sentinel")

// ChecksumError indicates that a decoded frame's checksum does not match its
// contents.
type ChecksumError struct {
	Address  uint16
	Expected uint16
	Actual   uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for frame at 0x%04X: expected 0x%04X, got 0x%04X",
		e.Address, e.Expected, e.Actual)
}

// LengthError indicates a frame whose size does not match the page size.
type LengthError struct {
	PageSize int
	Length   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("frame length %d does not match page size %d (want %d bytes)",
		e.Length, e.PageSize, e.PageSize+Overhead)
}

// Frame is one command+address+page unit.
type Frame struct {
	Command byte
	Address uint16
	Page    []byte
}

// NewDataFrame creates a program frame for the page at offset. data shorter
// than pageSize is padded with PadByte.
func NewDataFrame(offset uint16, data []byte, pageSize int) *Frame {
	page := make([]byte, pageSize)
	n := copy(page, data)
	for i := n; i < pageSize; i++ {
		page[i] = PadByte
	}

	return &Frame{
		Command: CmdProgram,
		Address: offset,
		Page:    page,
	}
}

// NewRunFrame creates the end-of-transfer frame: address 0, zero page.
func NewRunFrame(pageSize int) *Frame {
	return &Frame{
		Command: CmdRun,
		Address: 0,
		Page:    make([]byte, pageSize),
	}
}

// MaxImageSize is the largest image a 16-bit frame address can reach.
const MaxImageSize = 1 << 16

// MaxPageSize bounds the page sizes accepted by CheckPageSize.
const MaxPageSize = 1024

// CheckPageSize reports whether n is a usable flash page size: a power of
// two from 2 to MaxPageSize.
func CheckPageSize(n int) error {
	if n < 2 || n > MaxPageSize || n&(n-1) != 0 {
		return fmt.Errorf("invalid page size %d: must be a power of two from 2 to %d", n, MaxPageSize)
	}
	return nil
}

// CheckImage reports whether every page of image is addressable.
func CheckImage(image []byte) error {
	if len(image) > MaxImageSize {
		return fmt.Errorf("image of %d bytes exceeds the %d byte address space", len(image), MaxImageSize)
	}
	return nil
}

// Split chunks image into consecutive program frames in ascending offset
// order. The frame at index i covers image[i*pageSize:(i+1)*pageSize].
// Offsets are 16 bits wide, so image must pass CheckImage.
func Split(image []byte, pageSize int) []*Frame {
	if pageSize <= 0 {
		return nil
	}

	frames := make([]*Frame, 0, (len(image)+pageSize-1)/pageSize)
	for start := 0; start < len(image); start += pageSize {
		end := start + pageSize
		if end > len(image) {
			end = len(image)
		}
		frames = append(frames, NewDataFrame(uint16(start), image[start:end], pageSize))
	}
	return frames
}

// Frames returns the full transfer for image: the program frames followed
// by a single run frame.
func Frames(image []byte, pageSize int) []*Frame {
	return append(Split(image, pageSize), NewRunFrame(pageSize))
}

// IsRun reports whether the frame ends the transfer.
func (f *Frame) IsRun() bool {
	return f.Command == CmdRun
}

// Checksum computes the CRC over command, address and page.
func (f *Frame) Checksum() uint16 {
	var header [HeaderSize]byte
	header[0] = f.Command
	binary.LittleEndian.PutUint16(header[1:3], f.Address)

	c := crc.UpdateBytes(0, header[:])
	return crc.UpdateBytes(c, f.Page)
}

// Encode serializes the frame to its wire form.
func (f *Frame) Encode() []byte {
	// Wire format:
	// 0-3: sentinel 00 00 00 01
	// 4: command
	// 5-6: address (little-endian)
	// 7..: page
	// last 2: checksum over 4..end-2 (little-endian)

	buf := make([]byte, SentinelSize+HeaderSize+len(f.Page)+ChecksumSize)
	copy(buf, Sentinel[:])
	buf[4] = f.Command
	binary.LittleEndian.PutUint16(buf[5:7], f.Address)
	copy(buf[7:], f.Page)

	sum := crc.Checksum(buf[SentinelSize : len(buf)-ChecksumSize])
	binary.LittleEndian.PutUint16(buf[len(buf)-ChecksumSize:], sum)

	return buf
}

// Decode parses a wire-form frame produced by Encode.
func Decode(data []byte, pageSize int) (*Frame, error) {
	if len(data) != pageSize+Overhead {
		return nil, &LengthError{PageSize: pageSize, Length: len(data)}
	}

	if [4]byte(data[:SentinelSize]) != Sentinel {
		return nil, ErrBadSentinel
	}

	body := data[SentinelSize : len(data)-ChecksumSize]
	f := &Frame{
		Command: body[0],
		Address: binary.LittleEndian.Uint16(body[1:3]),
		Page:    append([]byte(nil), body[HeaderSize:]...),
	}

	expected := binary.LittleEndian.Uint16(data[len(data)-ChecksumSize:])
	if actual := crc.Checksum(body); actual != expected {
		return nil, &ChecksumError{Address: f.Address, Expected: expected, Actual: actual}
	}

	return f, nil
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return fmt.Sprintf("%s @ 0x%04X (%d bytes, crc 0x%04X)",
		CommandName(f.Command), f.Address, len(f.Page), f.Checksum())
}
