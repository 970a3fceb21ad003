// Package firmware loads application images for transfer.
package firmware

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// DefaultFill is the value written into gaps between hex segments: the
// erased state of flash.
const DefaultFill = 0xFF

// MaxAddress bounds image addresses to what a frame can carry.
const MaxAddress = 1 << 16

// Image is a flat firmware image starting at address 0.
type Image struct {
	Data     []byte
	Segments int
}

// ParseHex reads Intel HEX from r. Gaps are filled with fill.
func ParseHex(r io.Reader, fill byte) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse intel hex: %w", err)
	}

	segments := mem.GetDataSegments()
	end := 0
	for _, s := range segments {
		if last := int(s.Address) + len(s.Data); last > end {
			end = last
		}
	}
	if end > MaxAddress {
		return nil, fmt.Errorf("image ends at 0x%X, beyond 0x%X", end, MaxAddress)
	}

	return &Image{
		Data:     mem.ToBinary(0, uint32(end), fill),
		Segments: len(segments),
	}, nil
}

// ReadFile loads a .hex file, or any other file as a raw binary image.
func ReadFile(path string, fill byte) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".hex" || ext == ".ihex" || ext == ".ihx" {
		return ParseHex(bytes.NewReader(data), fill)
	}

	if len(data) > MaxAddress {
		return nil, fmt.Errorf("image of %d bytes exceeds 0x%X", len(data), MaxAddress)
	}
	return &Image{Data: data, Segments: 1}, nil
}

// Pages returns the number of pageSize pages the image spans.
func (img *Image) Pages(pageSize int) int {
	return (len(img.Data) + pageSize - 1) / pageSize
}
