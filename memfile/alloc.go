package memfile

import (
	"github.com/pkg/errors"

	"github.com/keks/mempart"
)

// MaxAlloc is the largest single buffer HeapAllocator hands out.
const MaxAlloc = 1<<32 - 1

// Allocator is the memory capability a partition draws file buffers from.
type Allocator interface {
	// Alloc returns a zeroed buffer of length n.
	Alloc(n int) ([]byte, error)
	// Grow returns buf extended by n bytes. The first len(buf) bytes are kept.
	Grow(buf []byte, n int) ([]byte, error)
	// Free gives buf back. buf must not be used afterwards.
	Free(buf []byte)
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 || int64(n) > MaxAlloc {
		return nil, errors.Wrapf(mempart.ErrOutOfMemory, "alloc %d bytes", n)
	}
	return make([]byte, n), nil
}

func (HeapAllocator) Grow(buf []byte, n int) ([]byte, error) {
	if n < 0 || int64(len(buf))+int64(n) > MaxAlloc {
		return nil, errors.Wrapf(mempart.ErrOutOfMemory, "grow %d by %d bytes", len(buf), n)
	}
	return append(buf, make([]byte, n)...), nil
}

func (HeapAllocator) Free([]byte) {}

// LimitAllocator wraps another Allocator and refuses requests once Limit
// bytes are outstanding.
type LimitAllocator struct {
	Lower Allocator
	Limit int

	inUse int
}

// NewLimitAllocator returns a heap backed allocator capped at limit bytes.
func NewLimitAllocator(limit int) *LimitAllocator {
	return &LimitAllocator{Lower: HeapAllocator{}, Limit: limit}
}

// InUse reports the outstanding bytes.
func (la *LimitAllocator) InUse() int { return la.inUse }

func (la *LimitAllocator) lower() Allocator {
	if la.Lower == nil {
		return HeapAllocator{}
	}
	return la.Lower
}

func (la *LimitAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 || la.inUse+n > la.Limit {
		return nil, errors.Wrapf(mempart.ErrOutOfMemory, "alloc %d bytes with %d of %d in use", n, la.inUse, la.Limit)
	}

	buf, err := la.lower().Alloc(n)
	if err != nil {
		return nil, err
	}

	la.inUse += n
	return buf, nil
}

func (la *LimitAllocator) Grow(buf []byte, n int) ([]byte, error) {
	if n < 0 || la.inUse+n > la.Limit {
		return nil, errors.Wrapf(mempart.ErrOutOfMemory, "grow by %d bytes with %d of %d in use", n, la.inUse, la.Limit)
	}

	buf, err := la.lower().Grow(buf, n)
	if err != nil {
		return nil, err
	}

	la.inUse += n
	return buf, nil
}

func (la *LimitAllocator) Free(buf []byte) {
	la.inUse -= len(buf)
	la.lower().Free(buf)
}
