package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bigbag/audioboot/internal/crc"
)

func TestNewDataFrame_PadsToLength(t *testing.T) {
	f := NewDataFrame(1, []byte{1, 1}, 10)

	if f.Command != CmdProgram {
		t.Errorf("NewDataFrame Command = 0x%02X, want 0x%02X", f.Command, CmdProgram)
	}
	if f.Address != 1 {
		t.Errorf("NewDataFrame Address = %d, want 1", f.Address)
	}

	expected := []byte{1, 1, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(f.Page, expected) {
		t.Errorf("NewDataFrame Page = %v, want %v", f.Page, expected)
	}
}

func TestNewDataFrame_DoesNotAliasInput(t *testing.T) {
	data := []byte{1, 2, 3}
	f := NewDataFrame(0, data, 4)
	data[0] = 9

	if f.Page[0] != 1 {
		t.Errorf("NewDataFrame Page[0] = %d after caller modified input, want 1", f.Page[0])
	}
}

func TestNewRunFrame(t *testing.T) {
	f := NewRunFrame(10)

	if f.Command != CmdRun {
		t.Errorf("NewRunFrame Command = %d, want 3", f.Command)
	}
	if f.Address != 0 {
		t.Errorf("NewRunFrame Address = %d, want 0", f.Address)
	}
	if !bytes.Equal(f.Page, make([]byte, 10)) {
		t.Errorf("NewRunFrame Page = %v, want ten zero bytes", f.Page)
	}
	if !f.IsRun() {
		t.Error("NewRunFrame IsRun() = false, want true")
	}
}

func TestSplit(t *testing.T) {
	image := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	frames := Split(image, 6)

	if len(frames) != 2 {
		t.Fatalf("Split() returned %d frames, want 2", len(frames))
	}

	tests := []struct {
		address uint16
		page    []byte
	}{
		{0, []byte{1, 2, 3, 4, 5, 6}},
		{6, []byte{7, 8, 9, 10, 0xff, 0xff}},
	}

	for i, tt := range tests {
		if frames[i].Command != CmdProgram {
			t.Errorf("frame %d Command = %d, want %d", i, frames[i].Command, CmdProgram)
		}
		if frames[i].Address != tt.address {
			t.Errorf("frame %d Address = %d, want %d", i, frames[i].Address, tt.address)
		}
		if !bytes.Equal(frames[i].Page, tt.page) {
			t.Errorf("frame %d Page = %v, want %v", i, frames[i].Page, tt.page)
		}
	}
}

func TestSplit_ExactMultiple(t *testing.T) {
	frames := Split(make([]byte, 12), 6)
	if len(frames) != 2 {
		t.Errorf("Split() of 12 bytes by 6 returned %d frames, want 2", len(frames))
	}
}

func TestSplit_Empty(t *testing.T) {
	if frames := Split(nil, 128); len(frames) != 0 {
		t.Errorf("Split(nil) returned %d frames, want 0", len(frames))
	}
}

func TestFrames_AppendsRunFrame(t *testing.T) {
	frames := Frames([]byte{1, 2, 3}, 4)

	if len(frames) != 2 {
		t.Fatalf("Frames() returned %d frames, want 2", len(frames))
	}
	if !frames[1].IsRun() {
		t.Errorf("last frame command = %d, want %d", frames[1].Command, CmdRun)
	}
	if frames[0].IsRun() {
		t.Error("first frame is a run frame")
	}
}

func TestFrame_Encode(t *testing.T) {
	f := &Frame{
		Command: CmdProgram,
		Address: 0,
		Page:    make([]byte, 128),
	}

	expected := []byte{0, 0, 0, 1, 2, 0, 0}
	expected = append(expected, make([]byte, 128)...)
	expected = append(expected, 0xAF, 0xF2)

	if got := f.Encode(); !bytes.Equal(got, expected) {
		t.Errorf("Encode() = % X, want % X", got, expected)
	}
}

func TestFrame_Encode_AddressLittleEndian(t *testing.T) {
	f := NewDataFrame(0x1234, nil, 4)
	encoded := f.Encode()

	if encoded[5] != 0x34 || encoded[6] != 0x12 {
		t.Errorf("Encode() address bytes = %02X %02X, want 34 12", encoded[5], encoded[6])
	}

	sum := binary.LittleEndian.Uint16(encoded[len(encoded)-2:])
	if sum != f.Checksum() {
		t.Errorf("Encode() checksum = 0x%04X, Checksum() = 0x%04X", sum, f.Checksum())
	}
}

func TestFrame_ChecksumExcludesSentinel(t *testing.T) {
	f := NewDataFrame(0x40, []byte{0xDE, 0xAD}, 8)
	encoded := f.Encode()
	sum := binary.LittleEndian.Uint16(encoded[len(encoded)-2:])

	if want := crc.Checksum(encoded[SentinelSize : len(encoded)-2]); sum != want {
		t.Errorf("Encode() checksum = 0x%04X, want 0x%04X", sum, want)
	}
	if covered := crc.Checksum(encoded[:len(encoded)-2]); sum == covered {
		t.Errorf("Encode() checksum 0x%04X also covers the sentinel", sum)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	page := make([]byte, 64)
	for i := range page {
		page[i] = byte(i * 7)
	}
	f := NewDataFrame(0x0C40, page, 64)

	decoded, err := Decode(f.Encode(), 64)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Command != f.Command || decoded.Address != f.Address || !bytes.Equal(decoded.Page, f.Page) {
		t.Errorf("Decode() = %v, want %v", decoded, f)
	}
}

func TestDecode_Errors(t *testing.T) {
	good := NewDataFrame(0x80, []byte{1, 2, 3}, 16).Encode()

	badSentinel := append([]byte(nil), good...)
	badSentinel[3] = 0x00

	badChecksum := append([]byte(nil), good...)
	badChecksum[len(badChecksum)-1] ^= 0x01

	badPayload := append([]byte(nil), good...)
	badPayload[10] ^= 0x80

	t.Run("length", func(t *testing.T) {
		_, err := Decode(good[:len(good)-1], 16)
		var lengthErr *LengthError
		if !errors.As(err, &lengthErr) {
			t.Errorf("Decode() error = %v, want *LengthError", err)
		}
	})

	t.Run("sentinel", func(t *testing.T) {
		if _, err := Decode(badSentinel, 16); !errors.Is(err, ErrBadSentinel) {
			t.Errorf("Decode() error = %v, want ErrBadSentinel", err)
		}
	})

	for name, data := range map[string][]byte{"checksum": badChecksum, "payload": badPayload} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data, 16)
			var sumErr *ChecksumError
			if !errors.As(err, &sumErr) {
				t.Fatalf("Decode() error = %v, want *ChecksumError", err)
			}
			if sumErr.Address != 0x80 {
				t.Errorf("ChecksumError.Address = 0x%04X, want 0x0080", sumErr.Address)
			}
		})
	}
}

func TestCheckPageSize(t *testing.T) {
	tests := []struct {
		size int
		ok   bool
	}{
		{2, true},
		{64, true},
		{128, true},
		{1024, true},
		{0, false},
		{1, false},
		{-64, false},
		{63, false},
		{96, false},
		{2048, false},
	}

	for _, tt := range tests {
		err := CheckPageSize(tt.size)
		if (err == nil) != tt.ok {
			t.Errorf("CheckPageSize(%d) error = %v, want ok %v", tt.size, err, tt.ok)
		}
	}
}

func TestCheckImage(t *testing.T) {
	if err := CheckImage(make([]byte, MaxImageSize)); err != nil {
		t.Errorf("CheckImage(%d bytes) error = %v, want nil", MaxImageSize, err)
	}
	if err := CheckImage(make([]byte, MaxImageSize+1)); err == nil {
		t.Errorf("CheckImage(%d bytes) error = nil, want error", MaxImageSize+1)
	}
}

func TestSplit_LastPageOfAddressSpace(t *testing.T) {
	frames := Split(make([]byte, MaxImageSize), 256)
	if len(frames) != 256 {
		t.Fatalf("Split() returned %d frames, want 256", len(frames))
	}
	if got := frames[len(frames)-1].Address; got != 0xFF00 {
		t.Errorf("last frame Address = 0x%04X, want 0xFF00", got)
	}
}
