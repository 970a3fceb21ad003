// Package wav stores the rendered waveform as an 8-bit unsigned mono PCM
// WAV file and reads recordings back.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth  = 8
	formatPCM = 1
)

// ErrInvalidFile is returned for input that is not a RIFF/WAVE file.
var ErrInvalidFile = errors.New("not a valid WAV file")

// Audio is a mono 8-bit unsigned recording.
type Audio struct {
	Samples    []byte
	SampleRate int
}

// Write encodes samples as 8-bit mono PCM at sampleRate.
func Write(w io.WriteSeeker, samples []byte, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, formatPCM)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish wav: %w", err)
	}
	return nil
}

// WriteFile creates path and writes samples to it.
func WriteFile(path string, samples []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, samples, sampleRate); err != nil {
		return err
	}
	return f.Close()
}

// Read decodes a PCM WAV. Recordings at other bit depths are scaled to
// 8-bit unsigned and only the first channel is kept.
func Read(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	depth := int(dec.BitDepth)

	samples := make([]byte, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, toUnsigned8(buf.Data[i], depth))
	}

	return &Audio{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// ReadFile opens path and decodes it.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}

// toUnsigned8 maps a decoded sample to 8-bit unsigned. 8-bit WAV is already
// unsigned; wider depths are signed.
func toUnsigned8(v, depth int) byte {
	if depth <= 8 {
		return byte(v)
	}
	return byte(v>>(depth-8) + 128)
}
