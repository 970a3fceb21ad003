package main

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/bigbag/audioboot/internal/bootloader"
	"github.com/bigbag/audioboot/internal/capture"
	"github.com/bigbag/audioboot/internal/link"
	"github.com/bigbag/audioboot/internal/protocol"
	"github.com/bigbag/audioboot/internal/signal"
	"github.com/bigbag/audioboot/internal/sim"
	"github.com/bigbag/audioboot/internal/spm"
	"github.com/bigbag/audioboot/internal/wav"
)

const (
	modePolling = "polling"
	modeIRQ     = "irq"
)

// simulation runs one of the bootloader models on recorded audio.
type simulation struct {
	mcu      protocol.MCU
	audio    *wav.Audio
	cpuHz    int
	debug    io.Writer
	progress func(frames int)
}

type simResult struct {
	stats bootloader.Stats
	flash []byte
}

func (s *simulation) run(mode string) (*simResult, error) {
	switch mode {
	case modePolling:
		return s.runPolling()
	case modeIRQ:
		return s.runIRQ()
	default:
		return nil, fmt.Errorf("unknown mode %q (want %s or %s)", mode, modePolling, modeIRQ)
	}
}

func (s *simulation) onProgress(st bootloader.Stats) {
	if s.progress != nil {
		s.progress(st.Frames)
	}
}

// runPolling spins the polling receiver on a simulated comparator line.
func (s *simulation) runPolling() (*simResult, error) {
	irq := &sim.IRQ{}
	flash := sim.NewFlash(s.mcu.FlashSize, s.mcu.PageSize, sim.WithInterruptCheck(irq))
	launcher := &sim.Launcher{}

	line := sim.NewLine(s.audio.Samples, s.audio.SampleRate, s.cpuHz)
	rx := link.NewReceiver(signal.New(line, line, signal.WithWatchdog(line)), s.mcu.PageSize)

	loader := bootloader.New(rx, spm.New(flash, irq), launcher,
		bootloader.WithBootBase(s.mcu.BootBase),
		bootloader.WithReport(bootloader.NewReport(s.debug)),
	)
	loader.SetProgressCallback(s.onProgress)

	err := loader.Run()
	return s.result(loader.Stats(), flash), err
}

// runIRQ feeds edges to the capture decoder on its own goroutine while the
// main loop drains the mailbox. Each edge is held until the previous byte
// is taken, since the main loop runs slower than logical time.
func (s *simulation) runIRQ() (*simResult, error) {
	irq := &sim.IRQ{}
	flash := sim.NewFlash(s.mcu.FlashSize, s.mcu.PageSize, sim.WithInterruptCheck(irq))
	launcher := &sim.Launcher{}
	mb := &capture.Mailbox{}

	driver := sim.NewCapture(s.audio.Samples, s.audio.SampleRate, s.cpuHz, irq)
	loader := capture.NewLoader(mb, irq, spm.New(flash, irq), launcher, s.mcu.PageSize,
		capture.WithWatchdog(driver),
		capture.WithBootBase(s.mcu.BootBase),
		capture.WithReport(bootloader.NewReport(s.debug)),
	)
	loader.SetProgressCallback(s.onProgress)

	var stopped atomic.Bool
	driver.SetPace(func() {
		for mb.Full() && !stopped.Load() {
			runtime.Gosched()
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		driver.Run(capture.NewDecoder(mb))
	}()

	err := loader.Run()
	stopped.Store(true)
	wg.Wait()
	return s.result(loader.Stats(), flash), err
}

func (s *simulation) result(st bootloader.Stats, flash *sim.Flash) *simResult {
	for _, v := range flash.Violations() {
		fmt.Printf("Warning: %v\n", v)
	}
	return &simResult{
		stats: st,
		flash: flash.Bytes(),
	}
}
