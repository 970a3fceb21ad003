package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bigbag/audioboot/internal/detect"
	"github.com/bigbag/audioboot/internal/encoder"
	"github.com/bigbag/audioboot/internal/firmware"
	"github.com/bigbag/audioboot/internal/monitor"
	"github.com/bigbag/audioboot/internal/protocol"
	"github.com/bigbag/audioboot/internal/serial"
	"github.com/bigbag/audioboot/internal/wav"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	mcuFlag        string
	pageSizeFlag   int
	sampleRateFlag int
	cutoffFlag     float64
	preambleFlag   int
	fillFlag       uint8

	modeFlag     string
	cpuHzFlag    int
	bootBaseFlag int
	dumpFlag     string
	debugFlag    bool

	portFlag     string
	baudFlag     int
	resetFlag    bool
	firmwareFlag string
)

func main() {
	defer glog.Flush()
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	rootCmd := &cobra.Command{
		Use:   "audioboot",
		Short: "Load AVR firmware over an audio cable",
		Long: `audioboot turns a firmware image into a WAV file that an audio
bootloader on the target decodes from its analog comparator pin.

Play the WAV from any sound card into the target to program it. The
simulate command runs the same bootloader against a WAV file in software.`,
		SilenceUsage: true,
	}

	// Encode command
	encodeCmd := &cobra.Command{
		Use:   "encode <firmware.hex> [output.wav]",
		Short: "Encode firmware into a WAV file",
		Long: `Encode an Intel HEX (or raw binary) firmware image into 8-bit mono PCM.

Each flash page becomes one checksummed frame, followed by a run frame
that starts the application. Gaps in the HEX file are filled with --fill.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runEncode,
	}
	addGeometryFlags(encodeCmd)
	encodeCmd.Flags().IntVarP(&sampleRateFlag, "sample-rate", "r", protocol.DefaultSampleRate, "Sample rate in Hz")
	encodeCmd.Flags().Float64Var(&cutoffFlag, "cutoff", protocol.DefaultCutoff, "Low-pass filter cutoff in Hz")
	encodeCmd.Flags().IntVar(&preambleFlag, "preamble", protocol.DefaultPreamble, "Idle samples before each frame")
	encodeCmd.Flags().Uint8Var(&fillFlag, "fill", firmware.DefaultFill, "Byte used for gaps in the image")

	// Simulate command
	simulateCmd := &cobra.Command{
		Use:   "simulate <input.wav>",
		Short: "Run the bootloader against a WAV file",
		Long: `Decode a WAV file with a software model of the target.

--mode polling runs the comparator polling loop, --mode irq the
input-capture interrupt decoder. The resulting flash can be written
out with --dump.`,
		Args: cobra.ExactArgs(1),
		RunE: runSimulate,
	}
	addGeometryFlags(simulateCmd)
	simulateCmd.Flags().StringVar(&modeFlag, "mode", modePolling, "Receiver model: polling or irq")
	simulateCmd.Flags().IntVar(&cpuHzFlag, "cpu-hz", 16000000, "Target clock in Hz")
	simulateCmd.Flags().IntVar(&bootBaseFlag, "boot-base", 0, "First address of the boot section (default from --mcu)")
	simulateCmd.Flags().StringVar(&dumpFlag, "dump", "", "Write the resulting flash to this file")
	simulateCmd.Flags().BoolVar(&debugFlag, "debug", false, "Print the target's debug lines")

	// Monitor command
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Follow the target's debug output",
		Long: `Read the bootloader's debug UART while the WAV plays.

With --firmware, frames are checked against the image and missing
pages are listed when the application starts.`,
		RunE: runMonitor,
	}
	addGeometryFlags(monitorCmd)
	monitorCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	monitorCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	monitorCmd.Flags().BoolVar(&resetFlag, "reset", false, "Pulse DTR to restart the target first")
	monitorCmd.Flags().StringVar(&firmwareFlag, "firmware", "", "Firmware image the transfer is checked against")
	monitorCmd.Flags().Uint8Var(&fillFlag, "fill", firmware.DefaultFill, "Byte used for gaps in the image")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("audioboot %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	rootCmd.AddCommand(encodeCmd, simulateCmd, monitorCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		glog.Flush()
		os.Exit(1)
	}
}

func addGeometryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&mcuFlag, "mcu", "m", protocol.DefaultMCU,
		"Target part ("+strings.Join(protocol.MCUNames(), ", ")+")")
	cmd.Flags().IntVar(&pageSizeFlag, "page-size", 0, "Flash page size in bytes (default from --mcu)")
}

// geometry resolves --mcu with --page-size and --boot-base overrides.
func geometry() (protocol.MCU, error) {
	m, err := protocol.LookupMCU(mcuFlag)
	if err != nil {
		return m, err
	}
	if pageSizeFlag != 0 {
		m.PageSize = pageSizeFlag
	}
	if bootBaseFlag > 0 {
		m.BootBase = bootBaseFlag
	}
	if err := protocol.CheckPageSize(m.PageSize); err != nil {
		return m, err
	}
	return m, nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	firmwarePath := args[0]
	outputPath := strings.TrimSuffix(firmwarePath, filepath.Ext(firmwarePath)) + ".wav"
	if len(args) > 1 {
		outputPath = args[1]
	}

	m, err := geometry()
	if err != nil {
		return err
	}

	img, err := firmware.ReadFile(firmwarePath, fillFlag)
	if err != nil {
		return err
	}
	fmt.Printf("Firmware: %s (%d bytes, %d pages of %d)\n", firmwarePath, len(img.Data), img.Pages(m.PageSize), m.PageSize)

	if len(img.Data) > m.BootBase {
		fmt.Printf("Warning: image reaches 0x%X, pages from 0x%X will be refused by the bootloader\n", len(img.Data), m.BootBase)
	}

	enc, err := encoder.New(
		encoder.WithPageSize(m.PageSize),
		encoder.WithSampleRate(sampleRateFlag),
		encoder.WithCutoff(cutoffFlag),
		encoder.WithPreamble(preambleFlag),
	)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(img.Pages(m.PageSize)+1,
		progressbar.OptionSetDescription("Encoding"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	enc.SetProgressCallback(func(current, total int) {
		bar.Set(current)
	})

	samples, err := enc.Render(img.Data)
	if err != nil {
		return err
	}
	bar.Finish()

	if err := wav.WriteFile(outputPath, samples, sampleRateFlag); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%d samples, %s at %d Hz)\n",
		outputPath, len(samples), enc.Duration(len(samples)).Round(time.Millisecond), sampleRateFlag)
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	m, err := geometry()
	if err != nil {
		return err
	}

	audio, err := wav.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Audio: %s (%d samples at %d Hz)\n", args[0], len(audio.Samples), audio.SampleRate)
	fmt.Printf("Target: %s, page %d bytes, boot section at 0x%X, %d Hz, %s mode\n",
		m.Name, m.PageSize, m.BootBase, cpuHzFlag, modeFlag)

	target := simulation{
		mcu:   m,
		audio: audio,
		cpuHz: cpuHzFlag,
	}
	if debugFlag {
		target.debug = os.Stdout
	} else {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Receiving"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100),
			progressbar.OptionClearOnFinish(),
		)
		target.progress = func(frames int) {
			bar.Set(frames)
		}
		defer bar.Finish()
	}

	res, err := target.run(modeFlag)
	if res != nil {
		fmt.Printf("\n%s\n", res.stats)
	}
	if err != nil {
		return fmt.Errorf("simulation stopped: %w", err)
	}

	if dumpFlag != "" {
		if err := os.WriteFile(dumpFlag, res.flash, 0o644); err != nil {
			return fmt.Errorf("failed to write flash dump: %w", err)
		}
		fmt.Printf("Flash written to %s\n", dumpFlag)
	}

	fmt.Println("Application started")
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	m, err := geometry()
	if err != nil {
		return err
	}

	var frames []*protocol.Frame
	if firmwareFlag != "" {
		img, err := firmware.ReadFile(firmwareFlag, fillFlag)
		if err != nil {
			return err
		}
		if err := protocol.CheckImage(img.Data); err != nil {
			return err
		}
		frames = protocol.Frames(img.Data, m.PageSize)
		fmt.Printf("Firmware: %s (%d frames)\n", firmwareFlag, len(frames))
	}

	portName := portFlag
	if portName == "" {
		fmt.Println("Detecting target...")
		result, err := detect.DetectDevice(detect.Options{BaudRate: baudFlag, Reset: true})
		if err != nil {
			return fmt.Errorf("target detection failed: %w", err)
		}
		portName = result.Port
		fmt.Printf("Found bootloader on %s (%q)\n", result.Port, result.Banner)
	}

	port, err := serial.Open(portName, baudFlag)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	fmt.Printf("Port: %s @ %d baud\n", portName, baudFlag)

	if resetFlag {
		if err := port.ResetTarget(); err != nil {
			return fmt.Errorf("failed to reset target: %w", err)
		}
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Waiting for frames, press Ctrl+C to stop...")
	tracker := monitor.NewTracker(frames)
	err = monitor.Watch(ctx, port, tracker, func(e monitor.Event) {
		fmt.Printf("  %s\n", e)
	})

	fmt.Println(tracker.Summary())
	if refused := tracker.Refused(); len(refused) > 0 {
		fmt.Print("Refused by the boot section guard:")
		for _, addr := range refused {
			fmt.Printf(" 0x%04X", addr)
		}
		fmt.Println()
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	if frames != nil && tracker.Done() && !tracker.Complete() {
		return fmt.Errorf("transfer incomplete")
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}
