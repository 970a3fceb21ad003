package crc

// Lag is a running checksum that also remembers its value from one and two
// bytes earlier. After the last byte of a frame whose final two bytes are
// its checksum, Body is the CRC of everything before them.
type Lag struct {
	cur   uint16
	prev  uint16
	prev2 uint16
}

// Reset clears all three registers.
func (l *Lag) Reset() {
	*l = Lag{}
}

// Update folds b into the running checksum and shifts the history.
func (l *Lag) Update(b byte) {
	l.prev2 = l.prev
	l.prev = l.cur
	l.cur = Update(l.cur, b)
}

// Sum returns the checksum including every byte seen.
func (l *Lag) Sum() uint16 {
	return l.cur
}

// Body returns the checksum as it stood two bytes ago.
func (l *Lag) Body() uint16 {
	return l.prev2
}
