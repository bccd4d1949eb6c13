package memfile

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/keks/mempart"
)

type op interface {
	Do(*testing.T, *Partition)
}

func checkErr(t *testing.T, expErr error, err error) {
	if expErr == nil {
		require.NoError(t, err)
	} else {
		require.Error(t, err)
		require.True(t, errors.Is(err, expErr), "expected %v, got %v", expErr, err)
	}
}

type openOp struct {
	name FileName
	flag OpenFlag

	// set by Do
	f **File

	expErr error
}

func (op openOp) Do(t *testing.T, p *Partition) {
	if op.flag == 0 {
		op.flag = OpenReadWrite | OpenCreate
	}

	f, err := p.OpenFile(op.name, op.flag)
	checkErr(t, op.expErr, err)

	if op.f != nil {
		*op.f = f
	}
}

type writeOp struct {
	f        **File
	data     []byte
	elemSize int
	count    int

	expN int
}

func (op writeOp) Do(t *testing.T, p *Partition) {
	if op.elemSize == 0 {
		op.elemSize = 1
	}
	if op.count == 0 {
		op.count = len(op.data) / op.elemSize
	}

	n, err := (*op.f).WriteElems(op.data, op.elemSize, op.count)
	t.Logf("writeOp, n: %d, err: %v", n, err)

	require.NoError(t, err)
	require.Equal(t, op.expN, n)
}

type readOp struct {
	f        **File
	elemSize int
	count    int

	exp  []byte
	expN int
}

func (op readOp) Do(t *testing.T, p *Partition) {
	if op.elemSize == 0 {
		op.elemSize = 1
	}

	var buf []byte
	if op.elemSize > 0 {
		buf = make([]byte, op.elemSize*op.count)
	}

	n := (*op.f).ReadElems(buf, op.elemSize, op.count)
	require.Equal(t, op.expN, n)
	if n == 0 {
		return
	}

	t.Logf("readOp, n: %d, buf %q", n, buf[:n*op.elemSize])
	require.Equal(t, op.exp, buf[:n*op.elemSize])
}

type seekOp struct {
	f      **File
	off    int64
	whence mempart.Whence

	expPos int64
	expErr error
}

func (op seekOp) Do(t *testing.T, p *Partition) {
	before := (*op.f).Tell()

	pos, err := (*op.f).Seek(op.off, op.whence)
	checkErr(t, op.expErr, err)

	if op.expErr != nil {
		require.Equal(t, before, pos, "cursor moved on failed seek")
		require.Equal(t, before, (*op.f).Tell())
		return
	}

	require.Equal(t, op.expPos, pos)
	require.Equal(t, op.expPos, (*op.f).Tell())
}

type deleteOp struct {
	name FileName

	expErr error
}

func (op deleteOp) Do(t *testing.T, p *Partition) {
	checkErr(t, op.expErr, p.Delete(op.name))
}

type renameOp struct {
	from, to FileName

	expErr error
}

func (op renameOp) Do(t *testing.T, p *Partition) {
	checkErr(t, op.expErr, p.Rename(op.from, op.to))
}

type existsOp struct {
	name FileName

	exp    bool
	expErr error
}

func (op existsOp) Do(t *testing.T, p *Partition) {
	ok, err := p.Exists(op.name)
	checkErr(t, op.expErr, err)
	require.Equal(t, op.exp, ok, "exists %q", op.name)
}

// usedOp checks the used count and that it matches the entries.
type usedOp struct {
	exp int
}

func (op usedOp) Do(t *testing.T, p *Partition) {
	require.Equal(t, op.exp, p.Used())
	requireAccounting(t, p)
}

type namesOp struct {
	exp []FileName
}

func (op namesOp) Do(t *testing.T, p *Partition) {
	require.Equal(t, op.exp, p.Names())
}

type dumpOp struct{}

func (op dumpOp) Do(t *testing.T, p *Partition) {
	t.Log(SDump(p))
}

func requireAccounting(t *testing.T, p *Partition) {
	var sum int
	for _, e := range p.entries {
		if e.file != nil {
			sum += len(e.file.buf)
		}
	}

	require.Equal(t, sum, p.Used(), "used does not match content")
	require.LessOrEqual(t, p.Used(), p.Capacity(), "used exceeds capacity")
}
