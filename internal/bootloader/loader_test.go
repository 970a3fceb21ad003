package bootloader_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigbag/audioboot/internal/bootloader"
	"github.com/bigbag/audioboot/internal/link"
	"github.com/bigbag/audioboot/internal/lpf"
	"github.com/bigbag/audioboot/internal/manchester"
	"github.com/bigbag/audioboot/internal/protocol"
	"github.com/bigbag/audioboot/internal/signal"
	"github.com/bigbag/audioboot/internal/sim"
	"github.com/bigbag/audioboot/internal/spm"
)

const (
	sampleRate = protocol.DefaultSampleRate
	cpuHz      = 16000000
	flashSize  = 0x8000
)

func render(t *testing.T, frames ...*protocol.Frame) []byte {
	t.Helper()

	enc := manchester.New(manchester.MinPreamble)
	filter, err := lpf.New(protocol.DefaultCutoff, sampleRate)
	require.NoError(t, err)

	var out []byte
	for _, f := range frames {
		out = append(out, filter.Process(nil, enc.EncodeFrame(f))...)
	}
	return out
}

type target struct {
	flash    *sim.Flash
	launcher *sim.Launcher
	debug    bytes.Buffer
	loader   *bootloader.Loader
}

func newTarget(samples []byte, pageSize int, opts ...bootloader.Option) *target {
	irq := &sim.IRQ{}
	tg := &target{
		flash:    sim.NewFlash(flashSize, pageSize, sim.WithInterruptCheck(irq)),
		launcher: &sim.Launcher{},
	}

	line := sim.NewLine(samples, sampleRate, cpuHz)
	rx := link.NewReceiver(signal.New(line, line, signal.WithWatchdog(line)), pageSize)

	opts = append([]bootloader.Option{bootloader.WithReport(bootloader.NewReport(&tg.debug))}, opts...)
	tg.loader = bootloader.New(rx, spm.New(tg.flash, irq), tg.launcher, opts...)
	return tg
}

func TestLoader_ProgramsAndLaunches(t *testing.T) {
	const pageSize = 128
	image := make([]byte, 2*pageSize+17)
	rand.New(rand.NewSource(1)).Read(image)
	frames := protocol.Frames(image, pageSize)

	tg := newTarget(render(t, frames...), pageSize)

	var progress []bootloader.Stats
	tg.loader.SetProgressCallback(func(s bootloader.Stats) {
		progress = append(progress, s)
	})

	require.NoError(t, tg.loader.Run())

	require.Equal(t, image, tg.flash.Read(0, len(image)))
	require.Equal(t, bytes.Repeat([]byte{0xff}, pageSize-17), tg.flash.Read(len(image), pageSize-17))
	require.Equal(t, 1, tg.launcher.Launches)
	require.Empty(t, tg.flash.Violations())
	require.Len(t, progress, len(frames))

	want := "Start\r\n"
	for _, f := range frames {
		want += fmt.Sprintf("%d 0x%04x, 0x%04x\r\n", f.Command, f.Address, f.Checksum())
	}
	want += "Running\r\n"
	require.Equal(t, want, tg.debug.String())

	stats := tg.loader.Stats()
	require.Equal(t, bootloader.Stats{Frames: 4, Programmed: 3, Launched: true}, stats)
}

func TestLoader_DropsBadFrame(t *testing.T) {
	const pageSize = 64
	bad := protocol.NewDataFrame(0, []byte{0xde, 0xad}, pageSize)
	good := protocol.NewDataFrame(pageSize, []byte{0xbe, 0xef}, pageSize)

	// Encode bad with a payload that no longer matches its checksum.
	samples := func() []byte {
		enc := manchester.New(manchester.MinPreamble)
		filter, err := lpf.New(protocol.DefaultCutoff, sampleRate)
		require.NoError(t, err)

		wire := bad.Encode()
		wire[len(wire)-3] ^= 0xff
		out := filter.Process(nil, enc.EncodeWire(wire))
		out = append(out, filter.Process(nil, enc.EncodeFrame(good))...)
		return append(out, filter.Process(nil, enc.EncodeFrame(protocol.NewRunFrame(pageSize)))...)
	}()

	tg := newTarget(samples, pageSize)
	require.NoError(t, tg.loader.Run())

	require.Equal(t, bytes.Repeat([]byte{0xff}, pageSize), tg.flash.Read(0, pageSize))
	require.Equal(t, good.Page, tg.flash.Read(pageSize, pageSize))
	require.Equal(t, 1, tg.loader.Stats().Rejected)
	require.Contains(t, tg.debug.String(), "Start\r\nBad frame\r\n")
}

func TestLoader_RefusesBootSection(t *testing.T) {
	const pageSize = 128
	frames := []*protocol.Frame{
		protocol.NewDataFrame(0x1f00, []byte{0x01}, pageSize),
		protocol.NewDataFrame(0x2000, []byte{0x02}, pageSize),
		protocol.NewRunFrame(pageSize),
	}

	tg := newTarget(render(t, frames...), pageSize, bootloader.WithBootBase(0x2000))
	require.NoError(t, tg.loader.Run())

	require.Equal(t, byte(0x01), tg.flash.Read(0x1f00, 1)[0])
	require.Equal(t, byte(0xff), tg.flash.Read(0x2000, 1)[0])
	require.Equal(t, 1, tg.loader.Stats().Refused)
	require.Contains(t, tg.debug.String(), "Refused 0x2000\r\n")
}

func TestLoader_EndOfAudio(t *testing.T) {
	const pageSize = 64
	tg := newTarget(render(t, protocol.NewDataFrame(0, nil, pageSize)), pageSize)

	require.ErrorIs(t, tg.loader.Run(), signal.ErrStalled)
	require.Zero(t, tg.launcher.Launches)
	require.Equal(t, 1, tg.loader.Stats().Programmed)
}

func TestReport_NilDiscards(t *testing.T) {
	var r *bootloader.Report
	r.Start()
	r.Frame(2, 0, 0)
	r.BadFrame()
	r.Running()

	bootloader.NewReport(nil).Refused(0)
}

func TestStats_String(t *testing.T) {
	s := bootloader.Stats{Frames: 5, Programmed: 3, Rejected: 2, Refused: 1}
	require.Equal(t, "5 frames, 3 programmed, 2 rejected, 1 refused", s.String())
}
