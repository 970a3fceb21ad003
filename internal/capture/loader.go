package capture

import (
	"errors"

	"github.com/bigbag/audioboot/internal/bootloader"
	"github.com/bigbag/audioboot/internal/crc"
	"github.com/bigbag/audioboot/internal/hw"
	"github.com/bigbag/audioboot/internal/link"
	"github.com/bigbag/audioboot/internal/protocol"
	"github.com/bigbag/audioboot/internal/spm"
)

// ErrStalled is returned when the watchdog expires with the mailbox empty.
var ErrStalled = errors.New("capture: stalled waiting for byte")

// Loader is the main loop of the interrupt-driven bootloader. Interrupts
// are disabled around taking a byte, updating the checksum and the
// decision that gates programming, and nowhere else.
type Loader struct {
	mb       *Mailbox
	irq      hw.Interrupts
	flash    hw.Flash
	launcher hw.Launcher
	wd       hw.Watchdog
	guard    spm.Guard
	report   *bootloader.Report
	progress bootloader.ProgressCallback

	buf   link.Frame
	sum   crc.Lag
	stats bootloader.Stats
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWatchdog bounds the wait for the next byte.
func WithWatchdog(w hw.Watchdog) LoaderOption {
	return func(l *Loader) {
		l.wd = w
	}
}

// WithBootBase sets the first address of the resident boot section.
func WithBootBase(base int) LoaderOption {
	return func(l *Loader) {
		l.guard.Base = base
	}
}

// WithReport sends debug lines to r.
func WithReport(r *bootloader.Report) LoaderOption {
	return func(l *Loader) {
		l.report = r
	}
}

// NewLoader returns a loader draining mb into pageSize-byte frames.
func NewLoader(mb *Mailbox, irq hw.Interrupts, flash hw.Flash, launcher hw.Launcher, pageSize int, opts ...LoaderOption) *Loader {
	l := &Loader{
		mb:       mb,
		irq:      irq,
		flash:    flash,
		launcher: launcher,
		wd:       hw.Never,
		guard: spm.Guard{
			Base:     protocol.BootloaderAddress,
			PageSize: pageSize,
		},
		buf: make(link.Frame, protocol.FrameSize(pageSize)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetProgressCallback sets the progress callback function.
func (l *Loader) SetProgressCallback(cb bootloader.ProgressCallback) {
	l.progress = cb
}

// Stats returns the counters so far.
func (l *Loader) Stats() bootloader.Stats {
	return l.stats
}

// Run assembles and gates frames until a run frame launches the
// application.
func (l *Loader) Run() error {
	l.report.Start()

	for {
		if err := l.fill(); err != nil {
			return err
		}
		launched := l.decide()
		if l.progress != nil {
			l.progress(l.stats)
		}
		if launched {
			return nil
		}
	}
}

// fill reads one frame into the buffer. A byte flagged as a frame start
// restarts the buffer, so a lost byte costs only the frame it was in.
func (l *Loader) fill() error {
	l.sum.Reset()

	for i := 0; i < len(l.buf); {
		b, start, err := l.take()
		if err != nil {
			return err
		}
		if start && i > 0 {
			i = 0
			l.sum.Reset()
		}

		l.buf[i] = b
		i++
		l.irq.Free(func() {
			l.sum.Update(b)
		})
	}
	return nil
}

func (l *Loader) take() (byte, bool, error) {
	for {
		var (
			b         byte
			start, ok bool
		)
		l.irq.Free(func() {
			b, start, ok = l.mb.Take()
		})
		if ok {
			return b, start, nil
		}

		if l.wd.Expired() {
			// The last byte can land between the take and the check.
			l.irq.Free(func() {
				b, start, ok = l.mb.Take()
			})
			if ok {
				return b, start, nil
			}
			return 0, false, ErrStalled
		}
	}
}

// decide checks the frame and programs or launches it. It reports whether
// the application was launched.
func (l *Loader) decide() bool {
	launched := false

	l.irq.Free(func() {
		f := l.buf
		if f.Checksum() != l.sum.Body() {
			l.stats.Rejected++
			l.report.BadFrame()
			return
		}

		l.stats.Frames++
		l.report.Frame(f.Command(), f.Address(), f.Checksum())

		if f.IsRun() {
			l.stats.Launched = true
			l.report.Running()
			l.launcher.Launch()
			launched = true
			return
		}

		if !l.guard.Allows(f.Address()) {
			l.stats.Refused++
			l.report.Refused(f.Address())
			return
		}
		spm.CommitPage(l.flash, f.Address(), f.Page())
		l.stats.Programmed++
	})

	return launched
}
