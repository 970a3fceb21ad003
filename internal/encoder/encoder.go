// Package encoder renders a firmware image into the filtered audio
// waveform the audio bootloader receives.
package encoder

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/bigbag/audioboot/internal/lpf"
	"github.com/bigbag/audioboot/internal/manchester"
	"github.com/bigbag/audioboot/internal/protocol"
)

// MaxImageSize is the largest image a 16-bit frame address can reach.
const MaxImageSize = protocol.MaxImageSize

// ProgressCallback is called to report render progress.
type ProgressCallback func(current, total int)

// Encoder turns firmware images into 8-bit PCM.
type Encoder struct {
	cfg      Config
	progress ProgressCallback
}

// New creates an Encoder.
func New(opts ...Option) (*Encoder, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := protocol.CheckPageSize(cfg.PageSize); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	if _, err := lpf.New(cfg.Cutoff, float64(cfg.SampleRate)); err != nil {
		return nil, err
	}
	if cfg.Preamble < manchester.MinPreamble {
		cfg.Preamble = manchester.MinPreamble
	}

	return &Encoder{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// SetProgressCallback sets the progress callback function.
func (e *Encoder) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// reportProgress calls the progress callback if set.
func (e *Encoder) reportProgress(current, total int) {
	if e.progress != nil {
		e.progress(current, total)
	}
}

// Frames returns the frames of a transfer of image.
func (e *Encoder) Frames(image []byte) ([]*protocol.Frame, error) {
	if err := protocol.CheckImage(image); err != nil {
		return nil, err
	}
	return protocol.Frames(image, e.cfg.PageSize), nil
}

// Render encodes image as program frames followed by a run frame, through
// one line encoder and one filter so polarity and filter state carry from
// frame to frame.
func (e *Encoder) Render(image []byte) ([]byte, error) {
	frames, err := e.Frames(image)
	if err != nil {
		return nil, err
	}

	line := manchester.New(e.cfg.Preamble)
	filter, err := lpf.New(e.cfg.Cutoff, float64(e.cfg.SampleRate))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(frames)*line.FrameSamples(e.cfg.PageSize))
	for i, f := range frames {
		glog.V(1).Infof("frame %d/%d: %s at 0x%04X, checksum 0x%04X",
			i+1, len(frames), protocol.CommandName(f.Command), f.Address, f.Checksum())

		samples := line.EncodeFrame(f)
		out = append(out, filter.Process(samples, samples)...)
		e.reportProgress(i+1, len(frames))
	}

	return out, nil
}

// Duration returns the play time of n samples.
func (e *Encoder) Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(e.cfg.SampleRate)
}
