package memfile

import (
	"io"

	"github.com/keks/mempart"
)

type funcWriter func([]byte) (int, error)

func (w funcWriter) Write(data []byte) (int, error) {
	return w(data)
}

// sliceWriter writes into buf front to back and fails with ErrTooSmall
// once buf is full.
func sliceWriter(buf []byte) funcWriter {
	var off int
	return funcWriter(func(data []byte) (int, error) {
		n := copy(buf[off:], data)
		off += n
		if n < len(data) {
			return n, mempart.ErrTooSmall
		}
		return n, nil
	})
}

// countingWriter passes writes on to w and adds their size to *n.
func countingWriter(w io.Writer, n *int64) funcWriter {
	return funcWriter(func(data []byte) (int, error) {
		written, err := w.Write(data)
		*n += int64(written)
		return written, err
	})
}
