package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// sourceReader is an open input with transparent gzip decompression.
type sourceReader struct {
	file *os.File
	gz   *gzip.Reader
	r    *bufio.Reader
}

// openSource opens path, sniffing the gzip magic bytes rather than trusting
// the extension. Concatenated gzip members are read as one stream.
func openSource(path string) (*sourceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bed file: %w", err)
	}

	sr := &sourceReader{file: file}
	br := bufio.NewReaderSize(file, 1<<20)

	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read bed header: %w", err)
	}

	// gzip magic number (0x1f, 0x8b)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		sr.gz, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		sr.r = bufio.NewReaderSize(sr.gz, 1<<20)
	} else {
		sr.r = br
	}
	return sr, nil
}

// Read implements io.Reader over the decompressed stream.
func (sr *sourceReader) Read(p []byte) (int, error) {
	return sr.r.Read(p)
}

// Close releases the gzip reader and the underlying file.
func (sr *sourceReader) Close() error {
	if sr.gz != nil {
		if err := sr.gz.Close(); err != nil {
			sr.file.Close()
			return err
		}
	}
	return sr.file.Close()
}

// newLineScanner returns a scanner sized for long BED12 lines.
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)
	return scanner
}
