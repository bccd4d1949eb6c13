// Package memfile implements an in-memory partition: a fixed capacity store
// of named, growable files with stream semantics, and its binary image format.
//
// A Partition is not safe for concurrent use. Hosts that share one across
// goroutines must hold a lock around every operation, including operations
// on the files it hands out.
package memfile

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/keks/mempart"
)

// Option configures a Partition.
type Option func(*Partition)

// WithAllocator makes the partition draw file buffers from a.
func WithAllocator(a Allocator) Option {
	return func(p *Partition) {
		p.alloc = a
	}
}

// OpenFlag selects the behaviour of OpenFile.
type OpenFlag uint8

const (
	OpenRead OpenFlag = 1 << iota
	OpenWrite
	OpenCreate

	OpenReadWrite = OpenRead | OpenWrite
)

type entry struct {
	name FileName
	file *File
}

// FileName is re-exported for convenience.
type FileName = mempart.FileName

// EntryInfo describes a directory entry.
type EntryInfo struct {
	Name       FileName
	Size       int
	HasContent bool
}

// Partition is a fixed capacity set of named files.
type Partition struct {
	capacity int
	used     int

	// entries keeps insertion order, byName indexes it.
	entries []*entry
	byName  map[FileName]*entry

	alloc Allocator
}

// New returns an empty partition that holds at most capacity bytes of file
// content.
func New(capacity int, opts ...Option) (*Partition, error) {
	if capacity <= 0 || int64(capacity) > math.MaxUint32 {
		return nil, errors.Wrapf(mempart.ErrInvalidCapacity, "capacity %d", capacity)
	}

	p := &Partition{
		capacity: capacity,
		byName:   make(map[FileName]*entry),
		alloc:    HeapAllocator{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Partition) Capacity() int { return p.capacity }
func (p *Partition) Used() int { return p.used }
func (p *Partition) Free() int { return p.capacity - p.used }
func (p *Partition) Len() int { return len(p.entries) }

// Names returns the entry names in directory order.
func (p *Partition) Names() []FileName {
	names := make([]FileName, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.name
	}
	return names
}

// Release frees every file buffer and empties the partition. Files handed
// out before are detached. The partition can not be used afterwards.
func (p *Partition) Release() {
	for _, e := range p.entries {
		if e.file != nil {
			p.detach(e.file)
		}
	}

	p.entries = nil
	p.byName = make(map[FileName]*entry)
	p.used = 0
}

// Open opens name for reading and writing, creating it if needed.
// Opening an open file returns the same *File, cursor included.
func (p *Partition) Open(name FileName) (*File, error) {
	return p.OpenFile(name, OpenReadWrite|OpenCreate)
}

// OpenFile opens name with the access given in flag. Without OpenCreate a
// missing name is an error. All openers share one *File; its access is set
// by the latest OpenFile call.
func (p *Partition) OpenFile(name FileName, flag OpenFlag) (*File, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	var access mempart.Access
	if flag&OpenRead != 0 {
		access |= mempart.Readable
	}
	if flag&OpenWrite != 0 {
		access |= mempart.Writable
	}
	if access == 0 {
		return nil, errors.Wrapf(mempart.ErrInvalidMode, "open %q with flag %#x", string(name), uint8(flag))
	}

	e, created := p.byName[name], false
	if e == nil {
		if flag&OpenCreate == 0 {
			return nil, errors.Wrapf(mempart.ErrNotFound, "open %q", string(name))
		}
		e, created = p.insert(name), true
	}

	if e.file == nil {
		buf, err := p.alloc.Alloc(0)
		if err != nil {
			if created {
				p.remove(e)
			}
			return nil, errors.Wrapf(err, "open %q", string(name))
		}

		e.file = &File{
			owner: p,
			entry: e,
			buf:   buf,
		}
	}

	e.file.access = access
	return e.file, nil
}

// Reserve creates the entry name without content. It is a no-op if the
// entry exists.
func (p *Partition) Reserve(name FileName) error {
	if err := name.Validate(); err != nil {
		return err
	}

	if p.byName[name] == nil {
		p.insert(name)
	}

	return nil
}

// Exists reports whether an entry called name is present.
func (p *Partition) Exists(name FileName) (bool, error) {
	if err := name.CheckLen(); err != nil {
		return false, err
	}

	_, ok := p.byName[name]
	return ok, nil
}

// Stat describes the entry called name.
func (p *Partition) Stat(name FileName) (EntryInfo, error) {
	if err := name.CheckLen(); err != nil {
		return EntryInfo{}, err
	}

	e := p.byName[name]
	if e == nil {
		return EntryInfo{}, errors.Wrapf(mempart.ErrNotFound, "stat %q", string(name))
	}

	return e.info(), nil
}

// Delete removes the entry called name and frees its content.
func (p *Partition) Delete(name FileName) error {
	if err := name.CheckLen(); err != nil {
		return err
	}

	e := p.byName[name]
	if e == nil {
		return errors.Wrapf(mempart.ErrNotFound, "delete %q", string(name))
	}

	if e.file != nil {
		p.detach(e.file)
		e.file = nil
	}

	p.remove(e)
	return nil
}

// Rename gives the entry oldname the name newname. The entry keeps its
// position in the directory. Renaming onto an existing entry fails with
// ErrConflict.
func (p *Partition) Rename(oldname, newname FileName) error {
	if err := oldname.CheckLen(); err != nil {
		return err
	}
	if err := newname.Validate(); err != nil {
		return err
	}

	e := p.byName[oldname]
	if e == nil {
		return errors.Wrapf(mempart.ErrNotFound, "rename %q", string(oldname))
	}

	if oldname == newname {
		return nil
	}

	if _, taken := p.byName[newname]; taken {
		return errors.Wrapf(mempart.ErrConflict, "rename %q to %q", string(oldname), string(newname))
	}

	delete(p.byName, oldname)
	e.name = newname
	p.byName[newname] = e

	return nil
}

// Replace sets the content of name to data, creating the entry if needed,
// and rewinds the file. Nothing changes if data does not fit.
func (p *Partition) Replace(name FileName, data []byte) error {
	if err := name.Validate(); err != nil {
		return err
	}

	e := p.byName[name]

	room := p.Free()
	if e != nil && e.file != nil {
		room += len(e.file.buf)
	}
	if len(data) > room {
		return errors.Wrapf(io.ErrShortWrite, "replace %q: %d bytes, %d free", string(name), len(data), room)
	}

	buf, err := p.alloc.Alloc(len(data))
	if err != nil {
		return errors.Wrapf(err, "replace %q", string(name))
	}
	copy(buf, data)

	f, err := p.Open(name)
	if err != nil {
		p.alloc.Free(buf)
		return err
	}

	p.used += len(buf) - len(f.buf)
	p.alloc.Free(f.buf)
	f.buf = buf
	f.cursor = 0

	return nil
}

func (p *Partition) insert(name FileName) *entry {
	e := &entry{name: name}
	p.entries = append(p.entries, e)
	p.byName[name] = e
	return e
}

func (p *Partition) remove(e *entry) {
	delete(p.byName, e.name)

	for i, other := range p.entries {
		if other == e {
			copy(p.entries[i:], p.entries[i+1:])
			p.entries[len(p.entries)-1] = nil
			p.entries = p.entries[:len(p.entries)-1]
			return
		}
	}
}

// detach returns the file's buffer and bytes to the partition and cuts the
// file loose, so stale handles can not touch the accounting.
func (p *Partition) detach(f *File) {
	p.used -= len(f.buf)
	p.alloc.Free(f.buf)

	f.buf = nil
	f.cursor = 0
	f.owner = nil
}

func (e *entry) info() EntryInfo {
	info := EntryInfo{Name: e.name}
	if e.file != nil {
		info.HasContent = true
		info.Size = len(e.file.buf)
	}
	return info
}
