package mempart

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is returned when the allocator refuses a request.
	// The failed operation has no side effect.
	ErrOutOfMemory = errors.New("out of memory")

	ErrNameTooLong = errors.New("file name too long")
	ErrInvalidName = errors.New("invalid file name")

	ErrNotFound = errors.New("file not found")

	// ErrConflict is returned when renaming onto a name that is taken.
	ErrConflict = errors.New("file name already in use")

	ErrInvalidOffset   = errors.New("invalid offset")
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrInvalidMode     = errors.New("invalid open mode")

	// ErrDetached is returned by io methods of a file whose entry was
	// deleted or whose partition was released.
	ErrDetached = errors.New("file detached from partition")

	ErrTooSmall = errors.New("buffer too small")
	ErrCorrupt  = errors.New("corrupt partition image")
)
