package mempart // import "github.com/keks/mempart"

import (
	"io"
)

// Basic Types

// ReadWriterAt is both a ReaderAt and a WriterAt.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Whence selects the origin of a seek. The values match io.SeekStart,
// io.SeekCurrent and io.SeekEnd.
type Whence = int

const (
	Start   Whence = io.SeekStart
	Current Whence = io.SeekCurrent
	End     Whence = io.SeekEnd
)

// Access is the set of capabilities a file handle carries.
type Access uint8

const (
	Readable Access = 1 << iota
	Writable

	ReadWrite = Readable | Writable
)

func (a Access) CanRead() bool { return a&Readable != 0 }
func (a Access) CanWrite() bool { return a&Writable != 0 }

func (a Access) String() string {
	switch a {
	case Readable:
		return "r"
	case Writable:
		return "w"
	case ReadWrite:
		return "rw"
	default:
		return "-"
	}
}

// File Layer

// File is a growable buffer with a cursor.
type File interface {
	Name() FileName
	Size() int64

	io.ReadWriteSeeker
	ReadWriterAt
}
