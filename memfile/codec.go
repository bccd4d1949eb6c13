package memfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/keks/mempart"
)

// Image layout, all integers little endian u32:
//
//	capacity | used | entry count
//	per entry: name NUL | content length | content
const (
	HeaderSize = 12
	lenSize    = 4
)

// DumpSize returns the exact length of the partition's image.
func (p *Partition) DumpSize() int {
	n := HeaderSize
	for _, e := range p.entries {
		n += len(e.name) + 1 + lenSize
		if e.file != nil {
			n += len(e.file.buf)
		}
	}
	return n
}

// Dump writes the partition image to buf and returns its length.
// buf must hold at least DumpSize bytes.
func (p *Partition) Dump(buf []byte) (int, error) {
	size := p.DumpSize()
	if len(buf) < size {
		return 0, errors.Wrapf(mempart.ErrTooSmall, "dump needs %d bytes, got %d", size, len(buf))
	}

	if err := p.encode(sliceWriter(buf)); err != nil {
		return 0, err
	}

	return size, nil
}

// MarshalBinary returns the partition image.
func (p *Partition) MarshalBinary() ([]byte, error) {
	buf := make([]byte, p.DumpSize())
	_, err := p.Dump(buf)
	return buf, err
}

// WriteTo writes the partition image to w.
func (p *Partition) WriteTo(w io.Writer) (int64, error) {
	var n int64
	err := p.encode(countingWriter(w, &n))
	return n, err
}

func (p *Partition) encode(w io.Writer) error {
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hdr, uint32(p.capacity))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(p.used))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(p.entries)))

	if _, err := w.Write(hdr); err != nil {
		return errors.Wrap(err, "write header")
	}

	rec := make([]byte, 0, mempart.MaxNameLen+1+lenSize)
	for _, e := range p.entries {
		var content []byte
		if e.file != nil {
			content = e.file.buf
		}

		rec = append(rec[:0], e.name...)
		rec = append(rec, 0)
		rec = binary.LittleEndian.AppendUint32(rec, uint32(len(content)))

		if _, err := w.Write(rec); err != nil {
			return errors.Wrapf(err, "write entry %q", string(e.name))
		}
		if _, err := w.Write(content); err != nil {
			return errors.Wrapf(err, "write content of %q", string(e.name))
		}
	}

	return nil
}

// Load rebuilds a partition from an image made by Dump. The used count is
// recomputed from the content and must agree with the header. Loaded files
// have their cursor at the start. Bytes after the last entry are ignored.
func Load(data []byte, opts ...Option) (*Partition, error) {
	if len(data) < HeaderSize {
		return nil, errors.Wrapf(mempart.ErrTooSmall, "image of %d bytes", len(data))
	}

	d := &decoder{data: data}
	capacity, _ := d.u32()
	used, _ := d.u32()
	count, _ := d.u32()

	p, err := New(int(capacity), opts...)
	if err != nil {
		return nil, errors.Wrapf(mempart.ErrCorrupt, "header: %v", err)
	}

	if err := p.replay(d, count); err != nil {
		p.Release()
		return nil, err
	}

	if p.used != int(used) {
		p.Release()
		return nil, errors.Wrapf(mempart.ErrCorrupt, "header claims %d bytes used, content has %d", used, p.used)
	}

	return p, nil
}

// LoadFrom reads a whole image from r and loads it.
func LoadFrom(r io.Reader, opts ...Option) (*Partition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	return Load(data, opts...)
}

func (p *Partition) replay(d *decoder, count uint32) error {
	for i := uint32(0); i < count; i++ {
		name, err := d.name()
		if err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}

		if _, dup := p.byName[name]; dup {
			return errors.Wrapf(mempart.ErrCorrupt, "entry %d: duplicate name %q", i, string(name))
		}

		f, err := p.Open(name)
		if err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}

		length, err := d.u32()
		if err != nil {
			return errors.Wrapf(err, "entry %d (%q) length", i, string(name))
		}

		content, err := d.bytes(length)
		if err != nil {
			return errors.Wrapf(err, "entry %d (%q) content", i, string(name))
		}

		if len(content) == 0 {
			continue
		}

		n, err := f.WriteElems(content, 1, len(content))
		if err != nil {
			return errors.Wrapf(err, "entry %d (%q)", i, string(name))
		}
		if n < len(content) {
			return errors.Wrapf(mempart.ErrCorrupt, "entry %d (%q): %d bytes do not fit into capacity %d", i, string(name), len(content), p.capacity)
		}

		f.Rewind()
	}

	return nil
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) u32() (uint32, error) {
	if len(d.data)-d.off < lenSize {
		return 0, errors.Wrapf(mempart.ErrCorrupt, "truncated at %d", d.off)
	}

	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += lenSize
	return v, nil
}

func (d *decoder) bytes(n uint32) ([]byte, error) {
	if uint64(len(d.data)-d.off) < uint64(n) {
		return nil, errors.Wrapf(mempart.ErrCorrupt, "need %d bytes at %d, have %d", n, d.off, len(d.data)-d.off)
	}

	b := d.data[d.off : d.off+int(n)]
	d.off += int(n)
	return b, nil
}

// name reads a NUL terminated name of at most MaxNameLen bytes.
func (d *decoder) name() (FileName, error) {
	window := d.data[d.off:]
	if len(window) > mempart.MaxNameLen+1 {
		window = window[:mempart.MaxNameLen+1]
	}

	end := bytes.IndexByte(window, 0)
	if end < 0 {
		return "", errors.Wrapf(mempart.ErrCorrupt, "name at %d not terminated", d.off)
	}

	name := FileName(window[:end])
	if err := name.Validate(); err != nil {
		return "", errors.Wrapf(mempart.ErrCorrupt, "name at %d: %v", d.off, err)
	}

	d.off += end + 1
	return name, nil
}
