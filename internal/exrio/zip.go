package exrio

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// zlibWriterPoolItem pairs a pooled writer with its destination buffer.
type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// zipCompress applies the OpenEXR ZIP transform to raw scanline bytes:
// byte split into even/odd halves, delta predictor, then zlib.
func zipCompress(raw []byte) ([]byte, error) {
	n := len(raw)
	tmp := make([]byte, n)

	// Split bytes: even offsets go to the first half, odd offsets to the second.
	half := (n + 1) / 2
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			tmp[i/2] = raw[i]
		} else {
			tmp[half+i/2] = raw[i]
		}
	}

	// Predictor, working backwards so each byte sees its original predecessor.
	for i := n - 1; i >= 1; i-- {
		tmp[i] = byte(int(tmp[i]) - int(tmp[i-1]) + 128 + 256)
	}

	item := zlibWriterPool.Get().(*zlibWriterPoolItem)
	defer zlibWriterPool.Put(item)
	item.buf.Reset()
	item.writer.Reset(item.buf)

	if _, err := item.writer.Write(tmp); err != nil {
		return nil, err
	}
	if err := item.writer.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, item.buf.Len())
	copy(out, item.buf.Bytes())
	return out, nil
}

// zipDecompress reverses zipCompress into dst, which must be exactly the
// uncompressed size.
func zipDecompress(dst, src []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return ErrCorrupted
	}
	defer zr.Close()

	tmp := make([]byte, len(dst))
	if _, err := io.ReadFull(zr, tmp); err != nil {
		return ErrCorrupted
	}

	for i := 1; i < len(tmp); i++ {
		tmp[i] = byte(int(tmp[i-1]) + int(tmp[i]) - 128)
	}

	n := len(dst)
	half := (n + 1) / 2
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			dst[i] = tmp[i/2]
		} else {
			dst[i] = tmp[half+i/2]
		}
	}
	return nil
}
