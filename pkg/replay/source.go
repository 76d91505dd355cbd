package replay

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// OpenSource opens a recorded feed for reading. A ".gz" suffix selects
// transparent decompression; everything downstream sees the same read
// contract either way.
func OpenSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open source: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("replay: open gzip source: %w", err)
	}
	return &gzipSource{gz: gz, f: f}, nil
}

type gzipSource struct {
	gz *gzip.Reader
	f  *os.File
}

func (s *gzipSource) Read(p []byte) (int, error) { return s.gz.Read(p) }

func (s *gzipSource) Close() error {
	gzErr := s.gz.Close()
	if err := s.f.Close(); err != nil {
		return err
	}
	return gzErr
}
