package mempart

import (
	"github.com/pkg/errors"
)

// MaxNameLen is the longest file name in bytes. On disk a name takes up to
// MaxNameLen+1 bytes including the terminating NUL.
const MaxNameLen = 15

// FileName names a file within a partition.
type FileName string

// Validate checks that the name is non-empty, at most MaxNameLen bytes and
// consists of printable ASCII.
func (name FileName) Validate() error {
	if len(name) > MaxNameLen {
		return errors.Wrapf(ErrNameTooLong, "%q is %d bytes", string(name), len(name))
	}

	if len(name) == 0 {
		return errors.Wrap(ErrInvalidName, "empty name")
	}

	for i := 0; i < len(name); i++ {
		if c := name[i]; c < 0x20 || c > 0x7e {
			return errors.Wrapf(ErrInvalidName, "%q has byte 0x%02x at %d", string(name), c, i)
		}
	}

	return nil
}

// CheckLen only enforces the length limit, for lookups that never store the name.
func (name FileName) CheckLen() error {
	if len(name) > MaxNameLen {
		return errors.Wrapf(ErrNameTooLong, "%q is %d bytes", string(name), len(name))
	}
	return nil
}
