package parquetutils

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/source"
)

var _ source.ParquetFile = (*writeBuffer)(nil)

// writeBuffer is an append-only in-memory parquet file. The parquet writer only writes forward,
// so seeking is limited to reporting the current size.
type writeBuffer struct {
	buf bytes.Buffer
}

func newWriteBuffer() *writeBuffer {
	return &writeBuffer{}
}

func (b *writeBuffer) Create(string) (source.ParquetFile, error) {
	return newWriteBuffer(), nil
}

// Open returns a read-only view of what was written so far.
func (b *writeBuffer) Open(string) (source.ParquetFile, error) {
	return parquetbuffer.NewBufferFileFromBytesNoAlloc(b.Bytes()), nil
}

func (b *writeBuffer) Seek(offset int64, whence int) (int64, error) {
	size := int64(b.buf.Len())
	if (whence == io.SeekCurrent || whence == io.SeekEnd) && offset == 0 {
		return size, nil
	}
	if whence == io.SeekStart && offset == size {
		return size, nil
	}
	return size, errors.Errorf("write buffer can't seek to %d from %d", offset, whence)
}

func (b *writeBuffer) Read([]byte) (int, error) {
	return 0, errors.New("write buffer is not readable")
}

func (b *writeBuffer) Write(p []byte) (int, error) {
	n, _ := b.buf.Write(p)
	return n, nil
}

func (*writeBuffer) Close() error {
	return nil
}

func (b *writeBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
