package protocol

// ATmega328P defaults (Arduino Uno class boards)
const (
	DefaultPageSize   = 128
	BootloaderAddress = 0x7C00
)

// Default audio parameters
const (
	DefaultSampleRate = 44100
	DefaultCutoff     = 10000
	DefaultPreamble   = 500
)

// Default debug UART baud rate of the target's monitor build
const DefaultBaudRate = 57600
