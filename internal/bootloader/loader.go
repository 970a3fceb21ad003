// Package bootloader runs the receive, validate, program and run loop of
// the target.
package bootloader

import (
	"errors"

	"github.com/golang/glog"

	"github.com/bigbag/audioboot/internal/hw"
	"github.com/bigbag/audioboot/internal/link"
	"github.com/bigbag/audioboot/internal/protocol"
	"github.com/bigbag/audioboot/internal/spm"
)

// Loader is the polling bootloader: every wait is a spin on a hardware
// capability, all on one goroutine.
type Loader struct {
	rx       *link.Receiver
	flash    hw.Flash
	launcher hw.Launcher
	guard    spm.Guard
	report   *Report
	progress ProgressCallback
	stats    Stats
}

// Option configures a Loader.
type Option func(*Loader)

// WithBootBase sets the first address of the resident boot section.
func WithBootBase(base int) Option {
	return func(l *Loader) {
		l.guard.Base = base
	}
}

// WithReport sends debug lines to r.
func WithReport(r *Report) Option {
	return func(l *Loader) {
		l.report = r
	}
}

// New returns a loader receiving frames from rx and committing them to
// flash.
func New(rx *link.Receiver, flash hw.Flash, launcher hw.Launcher, opts ...Option) *Loader {
	l := &Loader{
		rx:       rx,
		flash:    flash,
		launcher: launcher,
		guard: spm.Guard{
			Base:     protocol.BootloaderAddress,
			PageSize: rx.PageSize(),
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetProgressCallback sets the progress callback function.
func (l *Loader) SetProgressCallback(cb ProgressCallback) {
	l.progress = cb
}

// Stats returns the counters so far.
func (l *Loader) Stats() Stats {
	return l.stats
}

// Run receives frames until a run frame launches the application. A frame
// that fails its checksum is dropped and the next one awaited. Run only
// returns an error when its byte source does; on hardware it never returns.
func (l *Loader) Run() error {
	l.report.Start()

	for {
		f, err := l.rx.Receive()
		if errors.Is(err, link.ErrBadFrame) {
			l.stats.Rejected++
			l.report.BadFrame()
			glog.V(1).Infof("dropped frame after %d good frames", l.stats.Frames)
			l.reportProgress()
			continue
		}
		if err != nil {
			return err
		}

		l.stats.Frames++
		l.report.Frame(f.Command(), f.Address(), f.Checksum())

		if f.IsRun() {
			l.stats.Launched = true
			l.report.Running()
			l.reportProgress()
			l.launcher.Launch()
			return nil
		}

		l.commit(f)
		l.reportProgress()
	}
}

func (l *Loader) commit(f link.Frame) {
	if !l.guard.Allows(f.Address()) {
		l.stats.Refused++
		l.report.Refused(f.Address())
		glog.Warningf("refusing page 0x%04X: overlaps boot section at 0x%04X", f.Address(), l.guard.Base)
		return
	}

	spm.CommitPage(l.flash, f.Address(), f.Page())
	l.stats.Programmed++
}

func (l *Loader) reportProgress() {
	if l.progress != nil {
		l.progress(l.stats)
	}
}
