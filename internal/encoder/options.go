package encoder

import "github.com/bigbag/audioboot/internal/protocol"

// Config holds the rendering parameters.
type Config struct {
	// PageSize is the target flash page size in bytes.
	PageSize int

	// SampleRate is the output sample rate in Hz.
	SampleRate int

	// Cutoff is the low-pass filter cutoff in Hz.
	Cutoff float64

	// Preamble is the number of idle samples before each frame.
	// Values below manchester.MinPreamble are raised to it.
	Preamble int
}

// defaultConfig returns the ATmega328P defaults.
func defaultConfig() Config {
	return Config{
		PageSize:   protocol.DefaultPageSize,
		SampleRate: protocol.DefaultSampleRate,
		Cutoff:     protocol.DefaultCutoff,
		Preamble:   protocol.DefaultPreamble,
	}
}

// Option is a functional option for configuring the Encoder.
type Option func(*Config)

// WithPageSize sets the flash page size.
//
// Example:
//
//	enc, err := encoder.New(encoder.WithPageSize(64))
func WithPageSize(size int) Option {
	return func(c *Config) {
		c.PageSize = size
	}
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithCutoff sets the low-pass filter cutoff frequency.
func WithCutoff(hz float64) Option {
	return func(c *Config) {
		c.Cutoff = hz
	}
}

// WithPreamble sets the idle sample count before each frame.
func WithPreamble(samples int) Option {
	return func(c *Config) {
		c.Preamble = samples
	}
}
