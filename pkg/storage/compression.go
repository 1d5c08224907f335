package storage

import (
	"fmt"
	"io"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how an input file is compressed
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionBGZF Compression = "bgzf"
	CompressionZstd Compression = "zstd"
)

// DetectCompression picks the codec from the file name suffix
func DetectCompression(path string) Compression {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".bgz"):
		return CompressionBGZF
	case strings.HasSuffix(lower, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return CompressionZstd
	}
	return CompressionNone
}

// TrimCompressionSuffix strips a recognised compression suffix, so that
// "genome.gbk.gz" is treated as "genome.gbk" for format detection.
func TrimCompressionSuffix(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range []string{".bgz", ".gz", ".zstd", ".zst"} {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// NewDecompressor wraps r with the decoder matching path's suffix.
// Closing the result closes r.
func NewDecompressor(r io.ReadCloser, path string) (io.ReadCloser, error) {
	switch DetectCompression(path) {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &stackedCloser{Reader: gz, closers: []io.Closer{gz, r}}, nil

	case CompressionBGZF:
		bg, err := bgzf.NewReader(r, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to create bgzf reader: %w", err)
		}
		return &stackedCloser{Reader: bg, closers: []io.Closer{bg, r}}, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return &stackedCloser{Reader: dec, closers: []io.Closer{zstdCloser{dec}, r}}, nil
	}
	return r, nil
}

// stackedCloser closes the decoder before the underlying reader
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// zstd.Decoder.Close has no error result
type zstdCloser struct {
	dec *zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.dec.Close()
	return nil
}
