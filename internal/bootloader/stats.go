package bootloader

import "fmt"

// Stats counts what happened to received frames.
type Stats struct {
	Frames     int // frames that passed the checksum, run frame included
	Programmed int
	Rejected   int // checksum failures
	Refused    int // pages overlapping the boot section
	Launched   bool
}

func (s Stats) String() string {
	return fmt.Sprintf("%d frames, %d programmed, %d rejected, %d refused",
		s.Frames, s.Programmed, s.Rejected, s.Refused)
}

// ProgressCallback is called after every frame.
type ProgressCallback func(s Stats)
