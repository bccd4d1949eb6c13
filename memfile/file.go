package memfile

import (
	"io"

	"github.com/pkg/errors"

	"github.com/keks/mempart"
)

var _ mempart.File = (*File)(nil)

// File is the content of a partition entry: a byte buffer with a cursor.
//
// Writes overwrite in place from the cursor and grow the buffer only past
// its current end; only the growth is charged to the partition.
type File struct {
	owner *Partition
	entry *entry

	buf    []byte
	cursor int
	access mempart.Access
}

// Name returns the current name of the file's entry.
func (f *File) Name() FileName { return f.entry.name }

func (f *File) Size() int64 { return int64(len(f.buf)) }
func (f *File) Access() mempart.Access { return f.access }
func (f *File) Tell() int64 { return int64(f.cursor) }
func (f *File) Rewind() { f.cursor = 0 }
func (f *File) Detached() bool { return f.owner == nil }
func (f *File) SetAccess(access mempart.Access) { f.access = access }

// Bytes returns a copy of the content.
func (f *File) Bytes() []byte {
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out
}

// Seek moves the cursor. The target must address a byte of the file, except
// that whence End with offset 0 lands just past the last byte, and offset 0
// from Start or Current is accepted on an empty file. On error the cursor
// does not move.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	size := int64(len(f.buf))
	last := size - 1

	var target int64
	switch whence {
	case mempart.Start:
		target = offset
	case mempart.Current:
		target = int64(f.cursor) + offset
	case mempart.End:
		if offset > 0 || offset < -last {
			return int64(f.cursor), errors.Wrapf(mempart.ErrInvalidOffset, "seek %d from end of %d bytes", offset, size)
		}
		f.cursor = int(size + offset)
		return int64(f.cursor), nil
	default:
		return int64(f.cursor), errors.Wrapf(mempart.ErrInvalidOffset, "unknown whence %d", whence)
	}

	if size == 0 && target == 0 {
		f.cursor = 0
		return 0, nil
	}

	if target < 0 || target > last {
		return int64(f.cursor), errors.Wrapf(mempart.ErrInvalidOffset, "seek to %d in %d bytes", target, size)
	}

	f.cursor = int(target)
	return target, nil
}

// ReadElems reads up to count elements of size bytes each into dst and
// returns the number of whole elements read. It reads nothing if the file is
// not readable or not even one element is left.
func (f *File) ReadElems(dst []byte, size, count int) int {
	if f.Detached() || !f.access.CanRead() || size <= 0 || count <= 0 {
		return 0
	}

	remaining := len(f.buf) - f.cursor
	if size > remaining {
		return 0
	}

	n := min(count, remaining/size, len(dst)/size)
	if n == 0 {
		return 0
	}

	copy(dst, f.buf[f.cursor:f.cursor+n*size])
	f.cursor += n * size

	return n
}

// WriteElems writes up to count elements of size bytes each from src at
// the cursor and returns the number of whole elements written. The count
// is cut to what the partition has room for; that is not an error. The
// error is non-nil only when the allocator fails, and then nothing changed.
func (f *File) WriteElems(src []byte, size, count int) (int, error) {
	if f.Detached() || !f.access.CanWrite() || size <= 0 || count <= 0 {
		return 0, nil
	}

	// bytes from the cursor to the end are overwritten for free
	room := len(f.buf) - f.cursor + f.owner.Free()

	n := min(count, len(src)/size, room/size)
	if n == 0 {
		return 0, nil
	}

	if _, err := f.writeAt(src[:n*size], f.cursor); err != nil {
		return 0, err
	}

	f.cursor += n * size
	return n, nil
}

// writeAt copies data to off, growing the buffer as needed. The caller has
// made sure the growth fits.
func (f *File) writeAt(data []byte, off int) (int, error) {
	if grow := off + len(data) - len(f.buf); grow > 0 {
		var (
			buf []byte
			err error
		)

		if len(f.buf) == 0 {
			buf, err = f.owner.alloc.Alloc(grow)
		} else {
			buf, err = f.owner.alloc.Grow(f.buf, grow)
		}
		if err != nil {
			return 0, errors.Wrapf(err, "write %d bytes to %q", len(data), string(f.entry.name))
		}

		if len(f.buf) == 0 {
			f.owner.alloc.Free(f.buf)
		}

		f.buf = buf
		f.owner.used += grow
	}

	copy(f.buf[off:], data)
	return len(data), nil
}

// Read implements io.Reader on top of ReadElems.
func (f *File) Read(p []byte) (int, error) {
	if f.Detached() {
		return 0, mempart.ErrDetached
	}
	if !f.access.CanRead() {
		return 0, errors.Wrapf(mempart.ErrInvalidMode, "%q is not readable", string(f.entry.name))
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := f.ReadElems(p, 1, len(p))
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer on top of WriteElems. A write cut short by the
// partition's capacity returns io.ErrShortWrite.
func (f *File) Write(p []byte) (int, error) {
	if f.Detached() {
		return 0, mempart.ErrDetached
	}
	if !f.access.CanWrite() {
		return 0, errors.Wrapf(mempart.ErrInvalidMode, "%q is not writable", string(f.entry.name))
	}

	n, err := f.WriteElems(p, 1, len(p))
	if err != nil {
		return n, err
	}

	if n < len(p) {
		return n, errors.Wrapf(io.ErrShortWrite, "%d of %d bytes fit into %q", n, len(p), string(f.entry.name))
	}
	return n, nil
}

// ReadAt reads from off without moving the cursor.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.Detached() {
		return 0, mempart.ErrDetached
	}
	if !f.access.CanRead() {
		return 0, errors.Wrapf(mempart.ErrInvalidMode, "%q is not readable", string(f.entry.name))
	}

	if off < 0 {
		return 0, errors.Wrapf(mempart.ErrInvalidOffset, "read at %d", off)
	}
	if off >= int64(len(f.buf)) {
		return 0, io.EOF
	}

	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes at off without moving the cursor. off may be at most the
// current size, so no gap is ever left in the file.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if f.Detached() {
		return 0, mempart.ErrDetached
	}
	if !f.access.CanWrite() {
		return 0, errors.Wrapf(mempart.ErrInvalidMode, "%q is not writable", string(f.entry.name))
	}

	if off < 0 || off > int64(len(f.buf)) {
		return 0, errors.Wrapf(mempart.ErrInvalidOffset, "write at %d in %d bytes", off, len(f.buf))
	}

	room := len(f.buf) - int(off) + f.owner.Free()
	data := p
	if len(data) > room {
		data = data[:room]
	}

	n, err := f.writeAt(data, int(off))
	if err != nil {
		return n, err
	}

	if n < len(p) {
		return n, errors.Wrapf(io.ErrShortWrite, "%d of %d bytes fit into %q", n, len(p), string(f.entry.name))
	}
	return n, nil
}
