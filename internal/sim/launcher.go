package sim

// Launcher records application launches.
type Launcher struct {
	Launches int
}

// Launch implements hw.Launcher.
func (l *Launcher) Launch() {
	l.Launches++
}
