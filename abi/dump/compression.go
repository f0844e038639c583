package dump

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is applied on top of the dump encoding.
type Compression uint8

// Supported compressions.
const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionBr
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionBr:
		return "br"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// CompressionFor picks the compression by the suffix of path.
func CompressionFor(path string) Compression {
	switch filepath.Ext(path) {
	case ".gz":
		return CompressionGzip
	case ".zst":
		return CompressionZstd
	case ".br":
		return CompressionBr
	}
	return CompressionNone
}

// Matches non-compliant io.Closer implementations (e.g. zstd.Decoder)
type ncloser interface {
	Close()
}

func decompress(c Compression, data []byte) ([]byte, error) {
	var r io.Reader
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		r = gr
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		r = zr
	case CompressionBr:
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unknown compression %s", c)
	}

	out, err := io.ReadAll(r)
	switch v := r.(type) {
	case io.Closer:
		_ = v.Close()
	case ncloser:
		v.Close()
	}
	return out, err
}

func compress(c Compression, data []byte) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	buf := new(bytes.Buffer)
	var w io.WriteCloser
	switch c {
	case CompressionGzip:
		w = gzip.NewWriter(buf)
	case CompressionZstd:
		zw, err := zstd.NewWriter(buf, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		w = zw
	case CompressionBr:
		w = brotli.NewWriter(buf)
	default:
		return nil, fmt.Errorf("unknown compression %s", c)
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
