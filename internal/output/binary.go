package output

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/inodb/packbed/internal/cluster"
)

// BinaryVersion is bumped whenever the envelope layout changes.
const BinaryVersion uint8 = 1

var binaryMagic = [4]byte{'P', 'K', 'B', 'D'}

var (
	// ErrNotBinary is returned for input without the envelope magic.
	ErrNotBinary = errors.New("not a packbed binary file")
	// ErrBinaryVersion is returned for an envelope written by another version.
	ErrBinaryVersion = errors.New("unsupported binary version")
)

// envelope is the gob payload following the header.
type envelope struct {
	Components map[string][]cluster.Component
}

// EncodeBinary writes m as a header followed by a snappy-compressed gob
// stream.
func EncodeBinary(w io.Writer, m *cluster.Map) error {
	header := append(binaryMagic[:], BinaryVersion)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	sw := snappy.NewBufferedWriter(w)
	if err := gob.NewEncoder(sw).Encode(envelope{Components: m.ToMap()}); err != nil {
		sw.Close()
		return fmt.Errorf("encode components: %w", err)
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("flush components: %w", err)
	}
	return nil
}

// DecodeBinary reads a map written by EncodeBinary.
func DecodeBinary(r io.Reader) (*cluster.Map, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotBinary
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(header[:4]) != binaryMagic {
		return nil, ErrNotBinary
	}
	if header[4] != BinaryVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBinaryVersion, header[4], BinaryVersion)
	}

	var env envelope
	if err := gob.NewDecoder(snappy.NewReader(r)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	return cluster.MapOf(env.Components), nil
}

// WriteBinaryFile encodes m to path.
func WriteBinaryFile(path string, m *cluster.Map) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := EncodeBinary(bw, m); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadBinaryFile decodes the map stored at path.
func ReadBinaryFile(path string) (*cluster.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	m, err := DecodeBinary(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}
