package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// Lines calls fn for every line read from r until fn returns false, r is
// exhausted or ctx is done. Reads returning no data, as serial reads do on
// timeout, are retried.
func Lines(ctx context.Context, r io.Reader, fn func(line string) bool) error {
	var pending []byte
	buf := make([]byte, 256)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		pending = append(pending, buf[:n]...)

		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := string(bytes.TrimRight(pending[:i], "\r"))
			pending = pending[i+1:]
			if !fn(line) {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			if len(pending) > 0 {
				fn(string(bytes.TrimRight(pending, "\r")))
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Watch parses lines from r into t, calling onEvent for each recognized
// one, until the application starts.
func Watch(ctx context.Context, r io.Reader, t *Tracker, onEvent func(Event)) error {
	return Lines(ctx, r, func(line string) bool {
		e := ParseLine(line)
		if e.Kind == Unknown {
			return true
		}
		t.Observe(e)
		if onEvent != nil {
			onEvent(e)
		}
		return !t.Done()
	})
}
