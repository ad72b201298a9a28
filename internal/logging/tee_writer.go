package logging

import (
	"io"

	"go.uber.org/multierr"
)

// TeeWriter writes to every writer, even when some of them fail.
// Unlike io.MultiWriter, a failing log file does not silence stdout.
type TeeWriter struct {
	writers []io.Writer
}

func NewTeeWriter(writers ...io.Writer) *TeeWriter {
	return &TeeWriter{writers: writers}
}

// Write reports len(p) if at least one writer accepted the whole entry.
func (tw *TeeWriter) Write(p []byte) (int, error) {
	var err error
	written := 0
	for _, w := range tw.writers {
		n, werr := w.Write(p)
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		if n > written {
			written = n
		}
	}
	return written, err
}
